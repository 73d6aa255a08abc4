package points

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/sabiapi"
	"golang.org/x/sync/singleflight"
)

func New(client *sabiapi.Client, logger *slog.Logger) core.PointsService {
	return &service{
		client: client,
		logger: logger.With("service", "points"),
	}
}

type service struct {
	client *sabiapi.Client
	logger *slog.Logger

	// coalesces identical in-flight conversions, e.g. a double submit
	converting singleflight.Group
}

func (s *service) Balance(ctx context.Context, token string) (*core.PointsBalance, error) {
	var balance core.PointsBalance
	if err := s.client.Get(ctx, "/points/balance", token, nil, &balance); err != nil {
		return nil, err
	}

	return &balance, nil
}

func (s *service) History(ctx context.Context, token string, limit, offset int) (*core.PointsHistory, error) {
	query := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}

	var history core.PointsHistory
	if err := s.client.Get(ctx, "/points/history", token, query, &history); err != nil {
		return nil, err
	}

	return &history, nil
}

// checkLocal applies the business constants shared with the server.
func checkLocal(points int64, walletAddress string) *core.Error {
	if !core.CanConvertPoints(points) {
		return core.NewError(core.ErrValidation, "minimum conversion is %d points", core.MinPointConversion)
	}

	if walletAddress == "" {
		return core.NewError(core.ErrValidation, "wallet address is required")
	}

	return nil
}

func (s *service) ValidateConversion(ctx context.Context, token string, points int64, walletAddress string) (*core.ConversionValidation, error) {
	if err := checkLocal(points, walletAddress); err != nil {
		return &core.ConversionValidation{
			Valid:   false,
			Message: err.Message,
		}, nil
	}

	req := core.ConversionRequest{Points: points, WalletAddress: walletAddress}

	var v core.ConversionValidation
	if err := s.client.Post(ctx, "/points/validate-conversion", token, req, &v); err != nil {
		return nil, err
	}

	return &v, nil
}

// Convert submits a single conversion. It is not idempotent and never
// retried here; use Reconcile after an ambiguous failure.
func (s *service) Convert(ctx context.Context, token string, points int64, walletAddress string) (*core.ConversionResult, error) {
	if err := checkLocal(points, walletAddress); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s:%d", token, walletAddress, points)
	v, err, shared := s.converting.Do(key, func() (any, error) {
		req := core.ConversionRequest{Points: points, WalletAddress: walletAddress}

		var result core.ConversionResult
		if err := s.client.Post(ctx, "/points/convert", token, req, &result); err != nil {
			return nil, err
		}

		return &result, nil
	})

	if shared {
		s.logger.Info("duplicate conversion coalesced", "points", points, "wallet", walletAddress)
	}

	if err != nil {
		s.logger.Error("points.Convert", "points", points, "err", err)
		return nil, err
	}

	return v.(*core.ConversionResult), nil
}

// ConvertValidated runs the server pre-flight check and converts only when
// it passes.
func (s *service) ConvertValidated(ctx context.Context, token string, points int64, walletAddress string) (*core.ConversionResult, error) {
	v, err := s.ValidateConversion(ctx, token, points, walletAddress)
	if err != nil {
		return nil, err
	}

	if !v.Valid {
		return nil, core.NewError(core.ErrValidation, "%s", v.Message)
	}

	return s.Convert(ctx, token, points, walletAddress)
}

// Reconcile reports whether a conversion of points already applied, by
// comparing the current balance with the balance read before the attempt.
func (s *service) Reconcile(ctx context.Context, token string, before *core.PointsBalance, points int64) (bool, *core.PointsBalance, error) {
	if before == nil {
		return false, nil, core.NewError(core.ErrValidation, "balance before the conversion is required")
	}

	current, err := s.Balance(ctx, token)
	if err != nil {
		return false, nil, err
	}

	return current.TotalPoints == before.TotalPoints-points, current, nil
}
