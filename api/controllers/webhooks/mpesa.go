package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/VSyncglobal/gruppy-backend-sub000/api/responses"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/payments"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/mpesa"
)

const signatureHeader = "X-Mpesa-Signature"

// maxCallbackBody bounds how much of a webhook body is read.
const maxCallbackBody = 1 << 20

// MpesaCallback receives STK push results. Processing faults after a verified
// signature are acknowledged with 200 so the gateway does not retry forever;
// reconciliation of the stuck payment falls to the expiry job.
func MpesaCallback(svc payments.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable payload"))
			return
		}

		if !payments.VerifySignature(secret, body, r.Header.Get(signatureHeader)) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var envelope mpesa.CallbackEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed callback payload"))
			return
		}

		if err := svc.HandleSTKCallback(r.Context(), envelope); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeValidation) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Error(r.Context(), "mpesa callback processing failed; acknowledging", err)
			}
		}

		responses.WriteSuccess(w, map[string]string{"ResultDesc": "Accepted"})
	}
}
