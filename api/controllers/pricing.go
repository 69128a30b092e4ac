package controllers

import (
	"net/http"

	"github.com/VSyncglobal/gruppy-backend-sub000/api/responses"
	"github.com/VSyncglobal/gruppy-backend-sub000/api/validators"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pricing"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
)

type calculateRequest struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	RouteID   string `json:"routeId" validate:"required,uuid4"`
	Quantity  int64  `json:"quantity" validate:"required,min=1"`
}

// PricingCalculate prices one product/route/quantity configuration.
func PricingCalculate(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req calculateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUID("productId", req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		routeID, err := validators.ParseUUID("routeId", req.RouteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		output, err := svc.Calculate(r.Context(), pricing.CalculateInput{
			ProductID: productID,
			RouteID:   routeID,
			Quantity:  req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, output)
	}
}

type simulateRequest struct {
	ProductID string               `json:"productId" validate:"required,uuid4"`
	RouteID   string               `json:"routeId" validate:"required,uuid4"`
	Cost      pricing.DecimalRange `json:"cost"`
	Quantity  pricing.IntRange     `json:"quantity"`
	Margin    pricing.DecimalRange `json:"margin"`
}

// PricingSimulate sweeps cost/quantity/margin ranges for viable configurations.
func PricingSimulate(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req simulateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUID("productId", req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		routeID, err := validators.ParseUUID("routeId", req.RouteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		output, err := svc.Simulate(r.Context(), pricing.SimulateInput{
			ProductID: productID,
			RouteID:   routeID,
			Cost:      req.Cost,
			Quantity:  req.Quantity,
			Margin:    req.Margin,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, output)
	}
}
