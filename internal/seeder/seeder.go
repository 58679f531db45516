// Package seeder fills an empty database with stations from the public
// EvCharger feed.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"evcharging-backend/config"
	"evcharging-backend/internal/model"
	"evcharging-backend/internal/store"
)

// Service imports stations once, on a database with no stations.
type Service struct {
	cfg    *config.SeederConfig
	store  store.Store
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates and initializes a new seeder service.
func NewService(cfg *config.SeederConfig, s store.Store, logger *zap.Logger) *Service {
	logger = logger.Named("seeder")

	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("invalid proxy URL, seeder will not use a proxy", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:   cfg,
		store: s,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run seeds the database when it holds no station yet. It returns the number
// of stations inserted. Callers treat any error as non-fatal.
func (s *Service) Run(ctx context.Context) (int, error) {
	if !s.cfg.Enabled {
		s.logger.Info("seeder is disabled")
		return 0, nil
	}
	if s.cfg.ServiceKey == "" {
		s.logger.Warn("seeder service key is not configured, skipping")
		return 0, nil
	}

	count, err := s.store.CountStations(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("stations already present, skipping seed", zap.Int64("stations", count))
		return 0, nil
	}

	items, err := s.fetchAll(ctx)
	if err != nil && len(items) == 0 {
		return 0, err
	}
	if len(items) == 0 {
		s.logger.Warn("feed returned no chargers")
		return 0, nil
	}

	stations := s.buildStations(items)
	if err := s.store.CreateStations(ctx, stations); err != nil {
		return 0, err
	}

	s.logger.Info("seeded stations from feed",
		zap.Int("stations", len(stations)),
		zap.Int("chargers", len(items)))
	return len(stations), nil
}

// fetchAll pages through the feed up to MaxPages. A failing page ends the
// walk; items fetched before it are kept.
func (s *Service) fetchAll(ctx context.Context) ([]apiItem, error) {
	var all []apiItem
	total := 1
	pageSize := s.cfg.PageSize
	for page := 1; page <= s.cfg.MaxPages && (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			s.logger.Warn("failed to fetch page", zap.Int("page", page), zap.Error(err))
			return all, err
		}
		if len(resp.Items.Item) == 0 {
			break
		}
		total = resp.TotalCount
		all = append(all, resp.Items.Item...)
		s.logger.Debug("fetched page", zap.Int("page", page), zap.Int("items", len(all)), zap.Int("total", total))
	}
	return all, nil
}

func (s *Service) fetchPage(ctx context.Context, page int) (*apiResponse, error) {
	// The portal hands out the key already URL-encoded; url.Values would encode it twice.
	query := url.Values{}
	query.Set("pageNo", strconv.Itoa(page))
	query.Set("numOfRows", strconv.Itoa(s.cfg.PageSize))
	query.Set("zcode", s.cfg.ZCode)
	query.Set("dataType", "JSON")
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/getChargerInfo?ServiceKey=" + s.cfg.ServiceKey + "&" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
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

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if apiResp.ResultCode != "" && apiResp.ResultCode != resultCodeOK {
		return nil, fmt.Errorf("feed returned result code %s: %s", apiResp.ResultCode, apiResp.ResultMsg)
	}
	return &apiResp, nil
}

// buildStations groups charger rows by station id, keeping feed order.
func (s *Service) buildStations(items []apiItem) []model.Station {
	now := s.now()
	index := make(map[string]int)
	var stations []model.Station

	for _, item := range items {
		i, ok := index[item.StatID]
		if !ok {
			code := item.StatID
			station := model.Station{
				Name:           item.StatNm,
				Address:        item.Addr,
				Latitude:       parseFloat(item.Lat),
				Longitude:      parseFloat(item.Lng),
				OperatorName:   item.BusiNm,
				ContactNumber:  item.BusiCall,
				OperatingHours: item.UseTime,
			}
			if code != "" {
				station.Code = &code
			}
			if !station.HasLocation() {
				station.Latitude, station.Longitude = nil, nil
			}
			stations = append(stations, station)
			i = len(stations) - 1
			index[item.StatID] = i
		}

		chargerType, connector := mapChargerType(item.ChgerType)
		stations[i].Chargers = append(stations[i].Chargers,
			model.NewCharger(0, item.ChgerID, chargerType, parseFloat(item.Output), &connector, now))
	}
	return stations
}

// mapChargerType maps the feed's chgerType code. Unknown codes are treated
// as slow AC chargers.
func mapChargerType(code string) (model.ChargerType, model.ConnectorType) {
	switch code {
	case "01":
		return model.ChargerTypeDCFast, model.ConnectorCHAdeMO
	case "03":
		return model.ChargerTypeDCCombo, model.ConnectorCCS1
	default:
		return model.ChargerTypeACSlow, model.ConnectorACType1
	}
}

func parseFloat(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &v
}
