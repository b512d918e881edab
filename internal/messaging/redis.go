package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wordclock-service/internal/logger"
	"wordclock-service/internal/types"

	"github.com/redis/go-redis/v9"
)

type Callbacks struct {
	CommandCallback    func(types.Command) error        // decoded serial/remote command
	RawIrCallback      func(uint16, uint32) error       // raw remote frame: address, code
	NumberCallback     func(int) error                  // show a number on the face
	TimeSampleCallback func(types.TimeOfDay) error      // fresh sample from the time source
	SettingsCallback   func(string) error               // setting key that was updated
	VariantCallback    func(string) error               // display variant name
	TrainCallback      func() error                     // start IR training
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l.WithTag("redis"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts all Redis listeners after system initialization
// is complete
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	pubsub := r.client.Subscribe(r.ctx, "timesource", "settings")
	r.logger.Infof("Subscribed to Redis channels: timesource, settings")

	r.wg.Add(1)
	go r.redisListener(pubsub)

	r.wg.Add(5)
	go r.listCommandListener("wordclock:command", r.handleCommandValue)
	go r.listCommandListener("wordclock:ir", r.handleIrValue)
	go r.listCommandListener("wordclock:number", r.handleNumberValue)
	go r.listCommandListener("wordclock:display", r.handleVariantValue)
	go r.listCommandListener("wordclock:train", r.handleTrainValue)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// BRPOP with a short timeout to allow periodic context checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if err == context.Canceled {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleCommandValue(value string) error {
	if r.callbacks.CommandCallback == nil {
		return nil
	}
	return r.callbacks.CommandCallback(types.Command(value))
}

func (r *RedisClient) handleIrValue(value string) error {
	if r.callbacks.RawIrCallback == nil {
		return nil
	}
	var addr uint16
	var code uint32
	if _, err := fmt.Sscanf(value, "%x:%x", &addr, &code); err != nil {
		r.logger.Infof("Invalid IR frame value: %s, expected 'addr:code' hex: %v", value, err)
		return fmt.Errorf("invalid IR frame: %s", value)
	}
	return r.callbacks.RawIrCallback(addr, code)
}

func (r *RedisClient) handleNumberValue(value string) error {
	if r.callbacks.NumberCallback == nil {
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		r.logger.Infof("Invalid number value: %s, expected integer: %v", value, err)
		return fmt.Errorf("invalid number: %s", value)
	}
	return r.callbacks.NumberCallback(n)
}

func (r *RedisClient) handleVariantValue(value string) error {
	if r.callbacks.VariantCallback == nil {
		return nil
	}
	return r.callbacks.VariantCallback(value)
}

func (r *RedisClient) handleTrainValue(value string) error {
	if r.callbacks.TrainCallback == nil {
		return nil
	}
	switch value {
	case "start":
		return r.callbacks.TrainCallback()
	default:
		r.logger.Infof("Invalid train command value: %s", value)
		return fmt.Errorf("invalid train command: %s", value)
	}
}

func (r *RedisClient) redisListener(pubsub *redis.PubSub) {
	defer r.wg.Done()
	defer pubsub.Close()

	r.logger.Infof("Starting Redis message listener")
	channel := pubsub.Channel()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting listener")
			return
		case msg, ok := <-channel:
			if !ok {
				r.logger.Fatalf("Redis connection lost, exiting to allow systemd restart")
			}
			if msg == nil {
				continue
			}

			r.logger.Debugf("Received Redis message: channel=%s payload=%s", msg.Channel, msg.Payload)

			switch msg.Channel {
			case "timesource":
				if r.callbacks.TimeSampleCallback == nil {
					continue
				}
				var t types.TimeOfDay
				if _, err := fmt.Sscanf(msg.Payload, "%d:%d:%d", &t.Hour, &t.Minute, &t.Second); err != nil {
					r.logger.Infof("Invalid time sample: %s: %v", msg.Payload, err)
					continue
				}
				if err := r.callbacks.TimeSampleCallback(t); err != nil {
					r.logger.Infof("Failed to handle time sample: %v", err)
				}

			case "settings":
				if r.callbacks.SettingsCallback != nil {
					r.logger.Infof("Processing settings update: %s", msg.Payload)
					if err := r.callbacks.SettingsCallback(msg.Payload); err != nil {
						r.logger.Infof("Failed to handle settings update: %v", err)
					}
				}
			}
		}
	}
}

// PublishPowerState stores and publishes the power state for UIs
func (r *RedisClient) PublishPowerState(state types.PowerState) error {
	if err := r.client.HSet(r.ctx, "wordclock", "power", string(state)).Err(); err != nil {
		return fmt.Errorf("failed to store power state: %w", err)
	}
	return r.client.Publish(r.ctx, "wordclock", "power").Err()
}

// PublishMode stores and publishes the active top-of-stack mode
func (r *RedisClient) PublishMode(mode types.Mode) error {
	if err := r.client.HSet(r.ctx, "wordclock", "mode", string(mode)).Err(); err != nil {
		return fmt.Errorf("failed to store mode: %w", err)
	}
	return r.client.Publish(r.ctx, "wordclock", "mode").Err()
}

// GetSettingsField reads one field from the settings hash
func (r *RedisClient) GetSettingsField(field string) (string, error) {
	value, err := r.client.HGet(r.ctx, "settings", field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", field, err)
	}
	return value, nil
}

// SendCommand pushes a command onto another service's list channel
func (r *RedisClient) SendCommand(channel, command string) error {
	return r.client.LPush(r.ctx, channel, command).Err()
}

func (r *RedisClient) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.client.Close()
}
