// Package alerts implements Alerta Rua: crowd reported road alerts with
// votes and an expiry.
package alerts

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/internal/providers/geo"
	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/logger"
)

const (
	DefaultTitle       = "Novo Alerta"
	DefaultDescription = "Reportado agora pelo usuário"
	DefaultReporter    = "Você"
	FallbackAddress    = "Localização Atual"
	DefaultTTL         = 2 * time.Hour
	DefaultRadiusKm    = 5.0
)

type Store interface {
	InsertAlert(ctx context.Context, alert *models.Alert) error
	CountAlerts(ctx context.Context) (int, error)
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	VoteAlert(ctx context.Context, id string, up bool) (*models.Alert, error)
	DeleteExpiredAlerts(ctx context.Context, before time.Time) (int64, error)
}

// Geocoder resolves the address of a new alert. geo.Client implements it.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geo.Location, error)
}

type Service struct {
	store    Store
	geocoder Geocoder
	ttl      time.Duration
	now      func() time.Time
}

// NewService builds the service; geocoder may be nil.
func NewService(store Store, geocoder Geocoder, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, geocoder: geocoder, ttl: ttl, now: time.Now}
}

type CreateInput struct {
	Type        models.AlertType `json:"type"`
	Lat         float64          `json:"lat"`
	Lng         float64          `json:"lng"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Address     string           `json:"address"`
	ReportedBy  string           `json:"reportedBy"`
}

type NearbyAlert struct {
	models.Alert
	DistanceKm float64 `json:"distanceKm"`
}

func seedAlerts(now time.Time) []models.Alert {
	return []models.Alert{
		{
			ID:          "1",
			Type:        models.AlertCheckpoint,
			Title:       "Fiscalização Ativa",
			Description: "Operação de trânsito na via principal",
			Location:    models.Location{Lat: -23.5505, Lng: -46.6333, Address: "Av. Paulista, 1000"},
			Upvotes:     45,
			Downvotes:   2,
			CreatedAt:   now,
			ReportedBy:  "Sistema",
		},
		{
			ID:          "2",
			Type:        models.AlertAccident,
			Title:       "Acidente Reportado",
			Description: "Colisão leve, via parcialmente interditada",
			Location:    models.Location{Lat: -23.5580, Lng: -46.6350, Address: "Av. Brigadeiro, 500"},
			Upvotes:     12,
			Downvotes:   1,
			CreatedAt:   now,
			ReportedBy:  "Usuario_99",
		},
	}
}

// Seed inserts the sample alerts when the store is empty and reports how
// many were added.
func (s *Service) Seed(ctx context.Context) (int, error) {
	n, err := s.store.CountAlerts(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	seeds := seedAlerts(s.now())
	for i := range seeds {
		if err := s.store.InsertAlert(ctx, &seeds[i]); err != nil {
			return i, err
		}
	}
	logger.Info("Sample alerts seeded", zap.Int("count", len(seeds)))
	return len(seeds), nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Alert, error) {
	if _, ok := Lookup(in.Type); !ok {
		return nil, apperr.InvalidInput("Tipo de alerta inválido")
	}
	if !geo.ValidCoordinates(in.Lat, in.Lng) {
		return nil, apperr.InvalidInput("Coordenadas inválidas")
	}

	now := s.now()
	expires := now.Add(s.ttl)
	alert := &models.Alert{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Title:       orDefault(in.Title, DefaultTitle),
		Description: orDefault(in.Description, DefaultDescription),
		Location: models.Location{
			Lat:     in.Lat,
			Lng:     in.Lng,
			Address: strings.TrimSpace(in.Address),
		},
		CreatedAt:  now,
		ExpiresAt:  &expires,
		ReportedBy: orDefault(in.ReportedBy, DefaultReporter),
	}
	if alert.Location.Address == "" {
		alert.Location.Address = s.resolveAddress(ctx, in.Lat, in.Lng)
	}

	if err := s.store.InsertAlert(ctx, alert); err != nil {
		return nil, apperr.Internal("Erro ao salvar alerta", err)
	}

	metrics.AlertsCreated.WithLabelValues(string(alert.Type)).Inc()
	logger.Info("Alert reported",
		zap.String("alert_id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("address", alert.Location.Address),
	)
	return alert, nil
}

func (s *Service) resolveAddress(ctx context.Context, lat, lng float64) string {
	if s.geocoder == nil {
		return FallbackAddress
	}
	loc, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil || loc == nil {
		logger.Warn("Reverse geocoding failed", zap.Error(err))
		return FallbackAddress
	}
	if loc.Address.Road != "" && loc.Address.City != "" {
		return loc.Address.Road + ", " + loc.Address.City
	}
	if loc.DisplayName != "" {
		return loc.DisplayName
	}
	return FallbackAddress
}

// List returns the alerts that have not expired, newest first.
func (s *Service) List(ctx context.Context) ([]models.Alert, error) {
	all, err := s.store.ListAlerts(ctx)
	if err != nil {
		return nil, apperr.Internal("Erro ao listar alertas", err)
	}

	now := s.now()
	active := make([]models.Alert, 0, len(all))
	for _, a := range all {
		if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			continue
		}
		active = append(active, a)
	}
	return active, nil
}

// Nearby returns active alerts within radiusKm of the point, closest first.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyAlert, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, apperr.InvalidInput("Coordenadas inválidas")
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	active, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyAlert, 0, len(active))
	for _, a := range active {
		d := geo.Haversine(lat, lng, a.Location.Lat, a.Location.Lng)
		if d <= radiusKm {
			out = append(out, NearbyAlert{Alert: a, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return nil, storeErr("Erro ao carregar alerta", err)
	}
	return alert, nil
}

func (s *Service) Vote(ctx context.Context, id string, up bool) (*models.Alert, error) {
	alert, err := s.store.VoteAlert(ctx, id, up)
	if err != nil {
		return nil, storeErr("Erro ao registrar voto", err)
	}

	direction := "down"
	if up {
		direction = "up"
	}
	metrics.AlertVotes.WithLabelValues(direction).Inc()
	return alert, nil
}

// PurgeExpired deletes the alerts that List already hides.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredAlerts(ctx, s.now())
	if err != nil {
		return 0, apperr.Internal("Erro ao remover alertas expirados", err)
	}
	if n > 0 {
		logger.Info("Expired alerts purged", zap.Int64("count", n))
	}
	return n, nil
}

func storeErr(msg string, err error) error {
	if apperr.KindOf(err) == apperr.KindNotFound {
		return err
	}
	return apperr.Internal(msg, err)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
