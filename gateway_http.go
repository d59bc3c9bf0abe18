package linkmonitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const GatewayApiVersion = "1.0"

// HTTPGateway exposes the monitoring state of a node over HTTP: the
// liveness map, the reception log and the active dataplane pair as JSON,
// plus the Prometheus metrics endpoint. Read only.
type HTTPGateway struct {
	reader  *Reader
	client  *MobilityClient
	manager *ConnectionManager
	server  *http.Server
}

type gatewayLink struct {
	Key string `json:"key"`
	Up  bool   `json:"up"`
}

type gatewayLinksResponse struct {
	ApiVersion string        `json:"api_version"`
	Links      []gatewayLink `json:"links"`
}

type gatewayLogEntry struct {
	Peer   string  `json:"peer"`
	AgeMs  float64 `json:"age_ms"`
	LastHb string  `json:"last_heartbeat"`
}

type gatewayActiveResponse struct {
	ApiVersion string `json:"api_version"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	Port       int    `json:"port"`
}

// NewHTTPGateway creates a gateway serving on the given listen address.
// Either reader or client provides the liveness map; the manager is
// optional and enables the active pair endpoint.
func NewHTTPGateway(listen string, reader *Reader, client *MobilityClient, manager *ConnectionManager) *HTTPGateway {
	gateway := &HTTPGateway{reader: reader, client: client, manager: manager}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/links", gateway.handleLinks)
	mux.HandleFunc("/api/v1/log", gateway.handleLog)
	mux.HandleFunc("/api/v1/active", gateway.handleActive)
	mux.Handle("/metrics", promhttp.Handler())

	gateway.server = &http.Server{Addr: listen, Handler: mux}
	return gateway
}

// Serve starts the gateway in a background task.
func (g *HTTPGateway) Serve() {
	go func() {
		log.Infof("[GATEWAY] listening on %s", g.server.Addr)
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("[GATEWAY] serving: %v", err)
		}
	}()
}

// Stop shuts the gateway down, dropping in-flight requests.
func (g *HTTPGateway) Stop() {
	if err := g.server.Close(); err != nil {
		log.Errorf("[GATEWAY] closing: %v", err)
	}
}

func (g *HTTPGateway) linkStatus() *SharedMap[string, bool] {
	if g.reader != nil {
		return g.reader.LinkStatus()
	}
	if g.client != nil {
		return g.client.LinkStatus()
	}
	return nil
}

func (g *HTTPGateway) handleLinks(w http.ResponseWriter, r *http.Request) {
	status := g.linkStatus()
	if status == nil {
		http.Error(w, "no liveness source attached", http.StatusNotFound)
		return
	}
	response := gatewayLinksResponse{ApiVersion: GatewayApiVersion}
	for _, entry := range status.Entries() {
		response.Links = append(response.Links, gatewayLink{Key: entry.Key, Up: entry.Value})
	}
	writeJSON(w, response)
}

func (g *HTTPGateway) handleLog(w http.ResponseWriter, r *http.Request) {
	if g.reader == nil {
		http.Error(w, "no reader attached", http.StatusNotFound)
		return
	}
	now := time.Now()
	entries := []gatewayLogEntry{}
	g.reader.receptionLog.Range(func(peer string, lastHeartbeat time.Time) bool {
		entries = append(entries, gatewayLogEntry{
			Peer:   peer,
			AgeMs:  float64(now.Sub(lastHeartbeat)) / float64(time.Millisecond),
			LastHb: lastHeartbeat.Format(time.RFC3339Nano),
		})
		return true
	})
	writeJSON(w, entries)
}

func (g *HTTPGateway) handleActive(w http.ResponseWriter, r *http.Request) {
	if g.manager == nil {
		http.Error(w, "no connection manager attached", http.StatusNotFound)
		return
	}
	pair := g.manager.ActivePair()
	writeJSON(w, gatewayActiveResponse{
		ApiVersion: GatewayApiVersion,
		Source:     pair.Source,
		Target:     pair.Target,
		Port:       DataplanePort,
	})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Errorf("[GATEWAY] encoding response: %v", err)
	}
}
