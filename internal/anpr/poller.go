package anpr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/amitRaDev/GMS/config"
	"github.com/amitRaDev/GMS/internal/camera"
	"github.com/amitRaDev/GMS/internal/plate"
)

// EventSink receives detections pulled from camera endpoints. The camera
// service satisfies it.
type EventSink interface {
	ProcessEvent(ctx context.Context, in camera.EventInput, token string) (*camera.EventResult, error)
}

// Poller periodically pulls pending detections from configured camera HTTP
// endpoints and feeds them through the camera service. It complements
// push-mode cameras that POST to the API directly.
type Poller struct {
	cfg    *config.Config
	sink   EventSink
	client *http.Client
}

// NewPoller creates a poller for the configured camera endpoints.
func NewPoller(cfg *config.Config, sink EventSink) *Poller {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.ANPR.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.ANPR.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Poller will not use a proxy.", cfg.ANPR.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Poller{
		cfg:  cfg,
		sink: sink,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// Run polls in a loop until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if !p.cfg.ANPR.Enabled || len(p.cfg.ANPR.Endpoints) == 0 {
		log.Println("ANPR poller is disabled. Not starting.")
		return
	}
	log.Println("Starting ANPR poller...")

	p.PollOnce(ctx)

	timer := time.NewTimer(p.cfg.ANPR.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("ANPR poller shutting down.")
			return
		case <-timer.C:
			p.PollOnce(ctx)
			timer.Reset(p.cfg.ANPR.Interval)
		}
	}
}

// PollOnce performs a single round over every configured endpoint. Endpoint
// failures are logged and do not stop the round.
func (p *Poller) PollOnce(ctx context.Context) {
	for _, ep := range p.cfg.ANPR.Endpoints {
		detections, err := p.fetch(ctx, ep)
		if err != nil {
			log.Printf("Error polling camera %s: %v", ep.CameraID, err)
			continue
		}
		p.submit(ctx, ep, detections)
	}
}

// Detection is one plate read as reported by a camera endpoint.
type Detection struct {
	PlateNumber  string `json:"plateNumber"`
	MovementType string `json:"movementType"`
	Time         string `json:"time"` // "2006-01-02 15:04:05" in the camera's local zone
	VehicleType  string `json:"vehicleType"`
	Image        string `json:"image"`
}

// upstreamResponse models the camera endpoint's response envelope.
type upstreamResponse struct {
	Code int `json:"code"`
	Data struct {
		Total int         `json:"total"`
		Items []Detection `json:"items"`
	} `json:"data"`
}

func (p *Poller) fetch(ctx context.Context, ep config.ANPREndpoint) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range ep.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var upstream upstreamResponse
	if err := json.Unmarshal(body, &upstream); err != nil {
		return nil, fmt.Errorf("failed to unmarshal camera response: %w", err)
	}
	if upstream.Code != 0 {
		return nil, fmt.Errorf("camera returned non-zero application code: %d", upstream.Code)
	}

	return upstream.Data.Items, nil
}

// submit filters implausible plate reads and forwards the rest. A bad read
// from one detection never blocks the rest of the batch.
func (p *Poller) submit(ctx context.Context, ep config.ANPREndpoint, detections []Detection) {
	for _, d := range detections {
		normalized := plate.Normalize(d.PlateNumber)
		if !plate.Plausible(normalized) {
			log.Printf("Skipping implausible plate read %q from camera %s", d.PlateNumber, ep.CameraID)
			continue
		}

		in := camera.EventInput{
			CameraID:           ep.CameraID,
			RegistrationNumber: normalized,
			MovementType:       d.MovementType,
			VehicleType:        d.VehicleType,
			Image:              d.Image,
		}
		if ts, err := p.parseTimestamp(d.Time); err != nil {
			log.Printf("Warning: could not parse detection time for %s: %v", normalized, err)
		} else if ts != nil {
			in.Time = ts.Format(time.RFC3339)
		}

		if _, err := p.sink.ProcessEvent(ctx, in, ""); err != nil {
			log.Printf("Error processing detection %s from camera %s: %v", normalized, ep.CameraID, err)
		}
	}
}

// parseTimestamp converts a camera timestamp into a time.Time, respecting the
// configured timezone.
func (p *Poller) parseTimestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}

	loc, err := time.LoadLocation(p.cfg.ANPR.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", p.cfg.ANPR.Timezone, err)
	}

	layout := "2006-01-02 15:04:05"
	parsed, err := time.ParseInLocation(layout, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
	}
	return &parsed, nil
}
