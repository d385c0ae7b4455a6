package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"delivery-dispatch-service/internal/adapters/cache"
	"delivery-dispatch-service/internal/config"
	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/logger"
	"delivery-dispatch-service/internal/ports"
)

// LocationEvent is one position report from the driver app.
type LocationEvent struct {
	DriverID  string    `json:"driver_id"`
	Lon       float64   `json:"lon"`
	Lat       float64   `json:"lat"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationConsumer feeds driver position updates from Kafka into the
// driver store and the redis geo index. The feed is best-effort: a bad
// message is logged and skipped, never retried. The next position report
// supersedes it.
type LocationConsumer struct {
	group    sarama.ConsumerGroup
	topic    string
	drivers  ports.DriverStore
	geoIndex *cache.RedisGeoIndex
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLocationConsumer(
	cfg config.KafkaConfig,
	drivers ports.DriverStore,
	geoIndex *cache.RedisGeoIndex,
	log *logger.Logger,
) (*LocationConsumer, error) {
	sc := sarama.NewConfig()
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("location consumer: create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &LocationConsumer{
		group:    group,
		topic:    cfg.LocationsTopic,
		drivers:  drivers,
		geoIndex: geoIndex,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (c *LocationConsumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			default:
				if err := c.group.Consume(c.ctx, []string{c.topic}, c); err != nil {
					c.log.WithError(err).Error("location feed consume failed")
				}
			}
		}
	}()
	c.log.WithField("topic", c.topic).Info("driver location feed started")
}

func (c *LocationConsumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.group.Close()
}

func (c *LocationConsumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *LocationConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *LocationConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := c.handleMessage(message); err != nil {
				c.log.WithError(err).
					WithField("topic", message.Topic).
					WithField("offset", message.Offset).
					Warn("dropping driver location message")
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *LocationConsumer) handleMessage(message *sarama.ConsumerMessage) error {
	var event LocationEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("parse location event: %w", err)
	}

	driverID, err := uuid.Parse(event.DriverID)
	if err != nil {
		return fmt.Errorf("parse driver id %q: %w", event.DriverID, err)
	}

	loc := domain.Coordinate{Lon: event.Lon, Lat: event.Lat}
	if !loc.Valid() {
		return fmt.Errorf("location out of range: (%f, %f)", event.Lon, event.Lat)
	}

	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	if err := c.drivers.UpdateLocation(c.ctx, driverID, loc, at); err != nil {
		return fmt.Errorf("update driver location: %w", err)
	}

	if c.geoIndex != nil {
		if err := c.geoIndex.UpdateLocation(c.ctx, driverID, loc); err != nil {
			c.log.WithError(err).WithField("driver_id", driverID).Warn("geo index update failed")
		}
	}

	c.log.WithField("driver_id", driverID).Debug("driver location updated")
	return nil
}
