package service

import (
	"framerelay/internal/logger"
	"framerelay/internal/metrics"
	"framerelay/internal/model"
	"framerelay/internal/repository"
	"framerelay/internal/service/websocket"
)

// Manager records the outcome of every relay request: metrics, delivery log and viewer events.
type Manager struct {
	deliveryRepo     repository.DeliveryRepository
	websocketService *websocket.HubService
	metrics          *metrics.Relay
	logger           *logger.Logger
}

// NewManager creates a Manager. deliveryRepo and websocketService may be nil to disable them.
func NewManager(deliveryRepo repository.DeliveryRepository, websocketService *websocket.HubService, m *metrics.Relay, logger *logger.Logger) *Manager {
	return &Manager{
		deliveryRepo:     deliveryRepo,
		websocketService: websocketService,
		metrics:          m,
		logger:           logger,
	}
}

// Record stores and publishes d. Failures are logged and never propagate to the request.
func (m *Manager) Record(d *model.Delivery) {
	m.metrics.RequestsTotal.WithLabelValues(string(d.Outcome)).Inc()
	if d.Size > 0 {
		m.metrics.PayloadBytes.Observe(float64(d.Size))
	}

	if m.deliveryRepo != nil {
		if _, err := m.deliveryRepo.Insert(d); err != nil {
			m.logger.Error("Failed to record delivery %s: %v", d.Filename, err)
		}
	}

	if m.websocketService != nil {
		m.websocketService.Publish(d.Event())
	}
}

// ObserveSink records the duration of one sink call in seconds.
func (m *Manager) ObserveSink(seconds float64) {
	m.metrics.SinkDuration.Observe(seconds)
}

// GetDeliveryRepository returns the delivery log, or nil when it is disabled.
func (m *Manager) GetDeliveryRepository() repository.DeliveryRepository {
	return m.deliveryRepo
}

// GetWebsocketService returns the viewer hub, or nil when it is disabled.
func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}
