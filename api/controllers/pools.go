package controllers

import (
	"net/http"
	"time"

	"github.com/VSyncglobal/gruppy-backend-sub000/api/middleware"
	"github.com/VSyncglobal/gruppy-backend-sub000/api/responses"
	"github.com/VSyncglobal/gruppy-backend-sub000/api/validators"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pools"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
)

type createPoolRequest struct {
	PricingRequestID string    `json:"pricingRequestId" validate:"required,uuid4"`
	TargetQuantity   int       `json:"targetQuantity" validate:"required,min=1"`
	Deadline         time.Time `json:"deadline" validate:"required"`
}

// PoolCreate opens a pool from a stored pricing run. Operator-only.
func PoolCreate(svc pools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPoolRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUID("pricingRequestId", req.PricingRequestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pool, err := svc.Create(r.Context(), pools.CreateInput{
			PricingRequestID: requestID,
			TargetQuantity:   req.TargetQuantity,
			Deadline:         req.Deadline,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pool)
	}
}

// PoolGet returns one pool by id.
func PoolGet(svc pools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		poolID, err := validators.URLParamUUID(r, "poolID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pool, err := svc.GetPool(r.Context(), poolID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pool)
	}
}

type joinPoolRequest struct {
	Quantity         int    `json:"quantity" validate:"required,min=1"`
	Method           string `json:"method" validate:"required"`
	DeliveryFeeCents int64  `json:"deliveryFeeCents" validate:"min=0"`
}

// PoolJoin commits the authenticated buyer to a pool.
func PoolJoin(svc pools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		poolID, err := validators.URLParamUUID(r, "poolID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUID("userId", middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req joinPoolRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		output, err := svc.Join(r.Context(), pools.JoinInput{
			PoolID:           poolID,
			UserID:           userID,
			Quantity:         req.Quantity,
			Method:           method,
			DeliveryFeeCents: req.DeliveryFeeCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, output)
	}
}

// PoolList returns one cursor page of pools that are still filling.
func PoolList(svc pools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.QueryInt(r, "limit", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		output, err := svc.ListFilling(r.Context(), pools.ListInput{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, output)
	}
}
