package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/aquarium-core/internal/bus"
	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// DeviceView is the API representation of one actuator. Known is false
// until the device has published a status; Metric names the reading that
// drives its rules.
type DeviceView struct {
	Device protocol.Device     `json:"device"`
	Known  bool                `json:"known"`
	Mode   protocol.Mode       `json:"mode,omitempty"`
	State  protocol.RelayState `json:"state,omitempty"`
	Metric protocol.SensorKind `json:"metric"`
}

// CommandRequest is the body of POST /devices/{device}/command.
type CommandRequest struct {
	Command string `json:"command"`
}

func (s *Server) deviceView(d protocol.Device) DeviceView {
	v := DeviceView{Device: d, Metric: d.Metric()}
	if s.devices == nil {
		return v
	}
	if st, ok := s.devices.Devices()[d]; ok {
		v.Known, v.Mode, v.State = true, st.Mode, st.State
	}
	return v
}

// handleListDevices returns every device in a fixed order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	all := protocol.Devices()
	views := make([]DeviceView, 0, len(all))
	for _, d := range all {
		views = append(views, s.deviceView(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := protocol.ParseDevice(chi.URLParam(r, "device"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, s.deviceView(d))
}

// handleDeviceCommand publishes ON, OFF or AUTO to a device's command
// topic. The response only confirms publication; the resulting status
// arrives on the device's status topic and the WebSocket feed.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	d, err := protocol.ParseDevice(chi.URLParam(r, "device"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "device not found")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	verb, err := protocol.ParseVerb([]byte(req.Command))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "command must be ON, OFF or AUTO")
		return
	}

	if s.bus == nil {
		writeError(w, r, http.StatusServiceUnavailable, "message bus unavailable")
		return
	}

	cmd := protocol.Command{Target: d, Verb: verb}
	if err := s.bus.Publish(bus.CommandEvent{Command: cmd}); err != nil {
		s.logger.Error("publishing command failed", "device", d, "command", verb, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to publish command")
		return
	}

	s.logger.Info("command published via API", "device", d, "command", verb,
		"request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"device":  d,
		"command": verb,
		"topic":   protocol.Topics{}.Command(d),
	})
}
