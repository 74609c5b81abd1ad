package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/services"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// decodeBody parses a single JSON object request body. An empty body is
// allowed so trigger endpoints can run with defaults.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func stopResponse(s *domain.ServiceStop) dto.StopResponse {
	res := dto.StopResponse{
		StopID:          s.ID,
		Priority:        string(s.Priority),
		ServiceDate:     s.ServiceDate,
		WindowStart:     s.WindowStart,
		WindowEnd:       s.WindowEnd,
		ManualSequence:  s.ManualSequence,
		AddressLine:     services.ResolveAddress(s, nil, nil),
		GeocodeStatus:   string(s.GeocodeStatus),
		GeocodedAt:      s.GeocodedAt,
		GeocodeProvider: s.GeocodeProvider,
	}
	if s.Coordinates != nil {
		lat, lon := s.Coordinates.Lat, s.Coordinates.Lon
		res.Lat, res.Lon = &lat, &lon
	}
	return res
}
