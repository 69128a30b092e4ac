package controllers

import (
	"net/http"

	"github.com/VSyncglobal/gruppy-backend-sub000/api/middleware"
	"github.com/VSyncglobal/gruppy-backend-sub000/api/responses"
	"github.com/VSyncglobal/gruppy-backend-sub000/api/validators"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/payments"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
)

// PaymentGet returns one payment. Owner-only.
func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paymentID, err := validators.URLParamUUID(r, "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUID("userId", middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		payment, err := svc.GetPayment(r.Context(), paymentID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}
