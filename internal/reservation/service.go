// Package reservation places automated phone calls asking a restaurant to
// hold a table for the group.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"bitvote/internal/apperror"

	"go.uber.org/zap"
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

const (
	minPartySize = 1
	maxPartySize = 50
)

type Request struct {
	RestaurantName string `json:"restaurantName" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	PartySize      int    `json:"partySize" binding:"required"`
	Time           string `json:"time" binding:"required"`
	CustomerName   string `json:"customerName" binding:"required"`
}

// Dialer is the telephony provider.
type Dialer interface {
	PlaceCall(ctx context.Context, to, twiml string) (*Call, error)
}

type Service struct {
	dialer Dialer
	log    *zap.Logger
}

func NewService(dialer Dialer, log *zap.Logger) *Service {
	return &Service{dialer: dialer, log: log.Named("reservation")}
}

func (s *Service) Call(ctx context.Context, req Request) (*Call, error) {
	req.RestaurantName = strings.TrimSpace(req.RestaurantName)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Time = strings.TrimSpace(req.Time)
	req.Phone = strings.TrimSpace(req.Phone)

	switch {
	case req.RestaurantName == "":
		return nil, apperror.InvalidInput("restaurantName is required")
	case req.CustomerName == "":
		return nil, apperror.InvalidInput("customerName is required")
	case req.Time == "":
		return nil, apperror.InvalidInput("time is required")
	case !e164.MatchString(req.Phone):
		return nil, apperror.InvalidInput("phone must be in E.164 format")
	case req.PartySize < minPartySize || req.PartySize > maxPartySize:
		return nil, apperror.InvalidInput(fmt.Sprintf("partySize must be between %d and %d", minPartySize, maxPartySize))
	}

	call, err := s.dialer.PlaceCall(ctx, req.Phone, Script(req))
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			s.log.Warn("provider rejected call",
				zap.Int("status", perr.HTTPStatus),
				zap.String("message", perr.Message),
			)
			if perr.IsAuth() {
				return nil, apperror.Wrap(err, apperror.KindAuthFailure, "AUTH_FAILURE",
					"telephony credentials rejected").WithDetails(perr.Message)
			}
			return nil, apperror.Wrap(err, apperror.KindUpstream, "CALL_FAILURE",
				"failed to place call").WithDetails(perr.Message)
		}
		s.log.Error("call failed", zap.Error(err))
		return nil, apperror.Wrap(err, apperror.KindUpstream, "CALL_FAILURE", "failed to place call")
	}

	s.log.Info("reservation call placed",
		zap.String("sid", call.SID),
		zap.String("status", call.Status),
		zap.Int("partySize", req.PartySize),
	)
	return call, nil
}

// Script renders the TwiML read to the restaurant.
func Script(req Request) string {
	msg := fmt.Sprintf(
		"Hello, this is an automated call on behalf of %s. "+
			"We would like to reserve a table for %d at %s, at %s. "+
			"Thank you.",
		req.CustomerName, req.PartySize, req.RestaurantName, req.Time,
	)
	return `<Response><Say voice="alice">` + html.EscapeString(msg) + `</Say></Response>`
}
