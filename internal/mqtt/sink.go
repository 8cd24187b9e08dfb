package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mlindstad/spa-bridge/internal/log"
	"github.com/mlindstad/spa-bridge/internal/spa"
)

// Options configures the broker connection and topic layout.
type Options struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Sink publishes canonical device state to an MQTT broker and routes
// set-topic messages back as control commands.
//
// Topic layout under the prefix:
//
//	<prefix>/<did>/<capability>          retained value
//	<prefix>/<did>/<capability>/bounds   retained bounds JSON
//	<prefix>/<did>/<capability>/enabled  retained "true"/"false"
//	<prefix>/<did>/<capability>/set      inbound commands
//	<prefix>/<did>/events                event stream, not retained
//	<prefix>/<did>/alarm                 retained alarm text
//	<prefix>/<did>/availability          retained "online"/"offline"
type Sink struct {
	cli     paho.Client
	prefix  string
	handler CommandHandler
}

// CommandHandler receives commands decoded from set topics.
type CommandHandler func(deviceID string, cmd spa.Command) error

// NewSink builds the sink and its broker connection options. Connect
// must be called before use.
func NewSink(opts Options, handler CommandHandler) *Sink {
	s := &Sink{prefix: opts.TopicPrefix, handler: handler}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = "spa-bridge-" + time.Now().Format("150405")
	}

	po := paho.NewClientOptions()
	po.AddBroker(opts.BrokerURL)
	po.SetClientID(clientID)
	po.SetUsername(opts.Username)
	po.SetPassword(opts.Password)
	po.SetAutoReconnect(true)
	po.SetConnectRetry(true)
	po.SetConnectRetryInterval(5 * time.Second)
	po.SetOrderMatters(true)
	po.OnConnect = func(c paho.Client) {
		log.Info("MQTT connected to %s", opts.BrokerURL)
		s.subscribeSetTopics()
	}
	po.OnConnectionLost = func(c paho.Client, err error) {
		log.Warn("MQTT connection lost: %v", err)
	}

	s.cli = paho.NewClient(po)
	return s
}

// Connect establishes the broker connection.
func (s *Sink) Connect() error {
	if t := s.cli.Connect(); t.Wait() && t.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", t.Error())
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight publishes a
// short grace period.
func (s *Sink) Close() {
	s.cli.Disconnect(250)
}

// subscribeSetTopics is run on every (re)connect; paho does not restore
// subscriptions across reconnects with clean sessions.
func (s *Sink) subscribeSetTopics() {
	topic := s.prefix + "/+/+/set"
	if t := s.cli.Subscribe(topic, 1, s.onSetMessage); t.Wait() && t.Error() != nil {
		log.Error("MQTT subscribe %s failed: %v", topic, t.Error())
	}
}

func (s *Sink) onSetMessage(_ paho.Client, msg paho.Message) {
	if s.handler == nil {
		return
	}
	deviceID, capability, ok := splitSetTopic(s.prefix, msg.Topic())
	if !ok {
		log.Debug("MQTT ignoring message on unexpected topic %s", msg.Topic())
		return
	}
	cmd, err := ParseCommand(capability, string(msg.Payload()))
	if err != nil {
		log.Warn("MQTT bad command on %s: %v", msg.Topic(), err)
		return
	}
	if err := s.handler(deviceID, cmd); err != nil {
		log.Error("MQTT command for device %s failed: %v", deviceID, err)
	}
}

func (s *Sink) publish(topic, payload string, retain bool) {
	if t := s.cli.Publish(topic, 1, retain, payload); t.Wait() && t.Error() != nil {
		log.Error("MQTT publish %s failed: %v", topic, t.Error())
	}
}

func (s *Sink) topic(deviceID string, parts ...string) string {
	t := s.prefix + "/" + deviceID
	for _, p := range parts {
		t += "/" + p
	}
	return t
}

// SetValue publishes a retained capability value.
func (s *Sink) SetValue(deviceID, capability string, value interface{}) {
	s.publish(s.topic(deviceID, capability), encodeValue(value), true)
}

// SetBounds publishes retained bounds JSON next to the value topic.
func (s *Sink) SetBounds(deviceID, capability string, bounds spa.Bounds) {
	b, err := json.Marshal(bounds)
	if err != nil {
		log.Error("MQTT failed to encode bounds for %s: %v", capability, err)
		return
	}
	s.publish(s.topic(deviceID, capability, "bounds"), string(b), true)
}

// EnableCapability publishes the capability's enabled flag.
func (s *Sink) EnableCapability(deviceID, capability string, enabled bool) {
	s.publish(s.topic(deviceID, capability, "enabled"), strconv.FormatBool(enabled), true)
}

// RaiseEvent publishes one event on the device's event stream. Events
// are not retained; automations only care about the moment they fire.
func (s *Sink) RaiseEvent(deviceID, event string) error {
	if t := s.cli.Publish(s.topic(deviceID, "events"), 1, false, event); t.Wait() && t.Error() != nil {
		return fmt.Errorf("mqtt event %s: %w", event, t.Error())
	}
	return nil
}

// SetAlarmMessage publishes the retained alarm text; empty clears it.
func (s *Sink) SetAlarmMessage(deviceID, text string) {
	s.publish(s.topic(deviceID, "alarm"), text, true)
}

// SetAvailable publishes the retained availability flag.
func (s *Sink) SetAvailable(deviceID string, online bool) {
	payload := "offline"
	if online {
		payload = "online"
	}
	s.publish(s.topic(deviceID, "availability"), payload, true)
}

// encodeValue renders a capability value for the wire: booleans and
// numbers in their plain form, strings as-is, everything else as JSON.
func encodeValue(value interface{}) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
