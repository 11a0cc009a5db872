package protocol

// TopicPrefix is the root of every aquarium topic.
const TopicPrefix = "aquarium"

// Topics provides builders for aquarium topic names.
//
//	topics := protocol.Topics{}
//	topics.Status(protocol.DevicePump) // "aquarium/pump/status"
type Topics struct{}

// Temperature is where the thermometer publishes {"temp": x}.
func (Topics) Temperature() string { return TopicPrefix + "/temp" }

// WaterLevel is where the level sensor publishes {"level": x}.
func (Topics) WaterLevel() string { return TopicPrefix + "/water_level" }

// Reading returns the topic for a sensor kind.
func (t Topics) Reading(kind SensorKind) string {
	if kind == SensorTemperature {
		return t.Temperature()
	}
	return t.WaterLevel()
}

// Command returns the command topic of a device.
//
// Example: aquarium/pump
func (Topics) Command(d Device) string { return TopicPrefix + "/" + string(d) }

// Status returns the retained status topic of a device.
//
// Example: aquarium/lamp/status
func (Topics) Status(d Device) string { return TopicPrefix + "/" + string(d) + "/status" }

// Feed is the feeder button topic.
func (Topics) Feed() string { return TopicPrefix + "/feed" }

// Alarm is the topic for human-readable alarms.
func (Topics) Alarm() string { return TopicPrefix + "/alarm" }

// All lists every data topic in the aquarium namespace.
func (t Topics) All() []string {
	return []string{
		t.Temperature(),
		t.WaterLevel(),
		t.Command(DevicePump),
		t.Status(DevicePump),
		t.Command(DeviceLamp),
		t.Status(DeviceLamp),
		t.Feed(),
		t.Alarm(),
	}
}
