package api

import (
	"encoding/binary"
	"encoding/json"
	"log"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pulsecheck/pulsecheck/calibration"
	"github.com/pulsecheck/pulsecheck/constants"
	"github.com/pulsecheck/pulsecheck/model"
	"github.com/pulsecheck/pulsecheck/pipeline"
	"github.com/pulsecheck/pulsecheck/store"
)

// Client binary frame types. Every client frame is one type byte
// followed by the payload.
const (
	msgControl byte = 0x00
	msgAudio   byte = 0x01
)

// calibration recordings longer than this are truncated
const maxCalibrationSeconds = 30

var upgrader = websocket.Upgrader{
	// cross-origin policy is enforced by the CORS middleware in front
	// of the router; the upgrade itself accepts any origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	store *store.Store
}

func NewServer(st *store.Store) *Server {
	return &Server{store: st}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/health", handleHealth).Methods("GET")
	router.HandleFunc("/ws/audio", s.handleAudioWS)
	return router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// session is the per-connection state. The websocket handler is the
// only goroutine touching it, so reads, pipeline mutation, and writes
// all happen in arrival order with no locking.
type session struct {
	conn  *websocket.Conn
	store *store.Store

	sampleRate  int
	calibration *model.Calibration
	pipeline    *pipeline.Pipeline

	calibrating bool
	calStep     string
	calBuffer   []float64
}

func (s *Server) handleAudioWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("[API] client connected from %v", r.RemoteAddr)

	sess := &session{
		conn:       conn,
		store:      s.store,
		sampleRate: constants.DefaultSampleRate,
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[API] abnormal disconnect: %v", err)
			}
			// best effort: a take lost to a dropped connection is
			// still saved, it just can't be sent back
			sess.finalize(false)
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		switch data[0] {
		case msgControl:
			sess.handleControl(data[1:])
		case msgAudio:
			sess.handleAudio(data[1:])
		default:
			log.Printf("[API] unknown frame type 0x%02x", data[0])
		}
	}
}

func (s *session) handleControl(payload []byte) {
	var msg model.ControlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("[API] bad control message: %v", err)
		return
	}

	switch msg.Type {
	case "start":
		s.start(msg)
	case "stop":
		s.finalize(true)
	case "calibrate":
		s.startCalibration(msg)
	case "stop_calibration":
		s.finishCalibration()
	default:
		log.Printf("[API] unknown control type %q", msg.Type)
	}
}

func (s *session) start(msg model.ControlMessage) {
	s.calibrating = false
	if msg.SampleRate > 0 {
		s.sampleRate = msg.SampleRate
	}

	cal := msg.Calibration
	if cal == nil {
		cal = s.calibration
	}

	s.pipeline = pipeline.New(model.SessionConfig{
		GridResolution:    msg.Grid,
		SampleRate:        s.sampleRate,
		TimingThresholdMs: msg.Threshold,
		Calibration:       cal,
	})
	log.Printf("[API] session started: grid=%v threshold=%v sampleRate=%v calibrated=%v",
		msg.Grid, msg.Threshold, s.sampleRate, cal.Complete())
	s.send(model.Started{Type: "started"})
}

// finalize ends the active session: report, persist, reset. A stop
// without a running session still gets a report so the client is never
// left waiting.
func (s *session) finalize(send bool) {
	if s.pipeline == nil {
		if send {
			s.send(&model.SessionReport{Type: "session_report", Error: "No active session"})
		}
		return
	}
	s.pipeline.Stop()
	report := s.pipeline.GenerateReport()
	if send {
		s.send(report)
	}
	if len(s.pipeline.AudioBuffer()) > 0 {
		id := store.NewSessionID()
		s.store.SaveSession(id, s.pipeline.AudioBuffer(), s.pipeline.SampleRate(), report)
		log.Printf("[API] session saved as %v", id)
	}
	s.pipeline = nil
}

func (s *session) startCalibration(msg model.ControlMessage) {
	if msg.SampleRate > 0 {
		s.sampleRate = msg.SampleRate
	}
	s.calibrating = true
	s.calStep = msg.Step
	s.calBuffer = nil
	log.Printf("[API] calibration started: step=%v", msg.Step)
	s.send(model.CalibrationStarted{Type: "calibration_started", Step: msg.Step})
}

func (s *session) finishCalibration() {
	s.calibrating = false

	profile := calibration.ExtractProfile(s.calBuffer, s.sampleRate)
	if profile.OnsetCount == 0 {
		s.send(model.CalibrationResult{
			Type:  "calibration_result",
			Step:  s.calStep,
			Error: "No onsets detected during calibration",
		})
		return
	}

	if s.calibration == nil {
		s.calibration = &model.Calibration{}
	}
	if s.calStep == "guitar" {
		s.calibration.Guitar = profile
	} else {
		s.calibration.Metronome = profile
	}
	log.Printf("[API] calibration step %v captured %v onsets", s.calStep, profile.OnsetCount)
	s.send(model.CalibrationResult{
		Type:    "calibration_result",
		Step:    s.calStep,
		Profile: profile,
	})
}

func (s *session) handleAudio(payload []byte) {
	chunk, ok := decodeSamples(payload)
	if !ok {
		log.Printf("[API] dropping audio frame: payload of %v bytes is not float32-aligned", len(payload))
		return
	}

	if s.calibrating {
		limit := maxCalibrationSeconds * s.sampleRate
		if len(s.calBuffer) < limit {
			s.calBuffer = append(s.calBuffer, chunk...)
		}
		return
	}

	if s.pipeline == nil {
		return
	}
	for _, ev := range s.pipeline.ProcessChunk(chunk) {
		s.send(ev)
	}
}

func (s *session) send(v any) {
	if err := s.conn.WriteJSON(v); err != nil {
		log.Printf("[API] write failed: %v", err)
	}
}

// decodeSamples interprets the payload as little-endian float32 PCM.
func decodeSamples(payload []byte) ([]float64, bool) {
	if len(payload)%4 != 0 {
		return nil, false
	}
	samples := make([]float64, len(payload)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(payload[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples, true
}
