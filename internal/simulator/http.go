package simulator

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/ledbench/internal/deviceapi"
)

// controlReply is the body of a successful control or broadcast call
type controlReply struct {
	Status string `json:"status"`
	State  State  `json:"state"`
}

type errorReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+deviceapi.InfoPath, s.handleInfo)
	mux.HandleFunc("GET "+deviceapi.ControlPath, s.handleControl)
	mux.HandleFunc("GET "+deviceapi.BroadcastPath, s.handleBroadcast)
	mux.HandleFunc("GET "+FeedPath, s.serveFeed)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Request",
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
		)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.led.Snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	st, err := s.led.Control(r.URL.Query())
	if err != nil {
		s.logger.Info("Rejected control request", zap.String("query", r.URL.RawQuery), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorReply{Status: "error", Message: deviceapi.GetShortErrorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, controlReply{Status: "ok", State: st})
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var enable bool
	switch action := r.URL.Query().Get("action"); action {
	case "enable":
		enable = true
	case "disable":
	default:
		writeJSON(w, http.StatusBadRequest, errorReply{Status: "error", Message: "action must be enable or disable"})
		return
	}
	st := s.led.SetBroadcast(enable)
	s.logger.Info("Broadcast toggled", zap.Bool("enabled", enable))
	writeJSON(w, http.StatusOK, controlReply{Status: "ok", State: st})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
