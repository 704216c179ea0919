package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"diversifia/ordersync/internal/constants"
	reqctx "diversifia/ordersync/internal/context"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/models/dtos"
	"diversifia/ordersync/internal/models/entities"
	"diversifia/ordersync/internal/orders"
)

const (
	maxWebhookBody  = 1 << 20
	recentRunsLimit = 10
)

// TriggerDraftSync handles GET|POST /sync/draft-orders. It runs one batch pass
// synchronously and always answers with JSON.
func (h *Handlers) TriggerDraftSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodGet, http.MethodPost:
		default:
			respondJSON(w, http.StatusMethodNotAllowed, dtos.SyncErrorResponse{
				Status:  string(constants.APIStatusError),
				Message: constants.MsgMethodNotAllowed,
			})
			return
		}

		log := logging.WithRequest(reqctx.GetRequestID(r.Context()), "/sync/draft-orders")
		log.Infow("Manual draft order sync requested", "caller", reqctx.GetCaller(r.Context()))

		result, err := h.sync.SyncDrafts(r.Context(), constants.TriggerManual)
		if err != nil {
			message := err.Error()
			if message == "" {
				message = constants.MsgSyncFailed
			}
			respondJSON(w, http.StatusInternalServerError, dtos.SyncErrorResponse{
				Status:  string(constants.APIStatusError),
				Message: message,
				Details: constants.MsgSyncFailedDetails,
			})
			return
		}

		respondJSON(w, http.StatusOK, dtos.DraftSyncResponse{
			Status: string(constants.APIStatusSuccess),
			Count:  result.Imported,
		})
	}
}

// DolibarrWebhook handles POST /webhooks/dolibarr: one order pushed by Dolibarr.
func (h *Handlers) DolibarrWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			respondWithError(w, http.StatusMethodNotAllowed, constants.MsgMethodNotAllowed)
			return
		}

		log := logging.WithRequest(reqctx.GetRequestID(r.Context()), "/webhooks/dolibarr")

		var in orders.WebhookOrder
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&in); err != nil {
			log.Warnw("Rejected webhook body", "error", err)
			// An empty body has no ref at all.
			if errors.Is(err, io.EOF) {
				respondWithError(w, http.StatusBadRequest, constants.MsgMissingRef)
				return
			}
			respondWithError(w, http.StatusBadRequest, constants.MsgMalformedBody)
			return
		}

		result, err := h.sync.IngestWebhook(r.Context(), in)
		switch {
		case errors.Is(err, constants.ErrInvalidPayload):
			respondWithError(w, http.StatusBadRequest, constants.MsgMissingRef)
			return
		case err != nil:
			log.Errorw("Webhook ingestion failed", "ref", in.Ref, "error", err)
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		message := constants.MsgWebhookImported
		if !result.Imported {
			message = constants.MsgWebhookDuplicate
		}
		respondJSON(w, http.StatusOK, dtos.WebhookResponse{
			Success: true,
			ID:      result.ID,
			Message: message,
		})
	}
}

// SyncStatus handles GET /sync/status.
func (h *Handlers) SyncStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := h.sync.LatestRuns(r.Context())
		if err != nil {
			historyError(w, err)
			return
		}
		recent, err := h.sync.RecentRuns(r.Context(), recentRunsLimit)
		if err != nil {
			historyError(w, err)
			return
		}
		h.writeStatus(w, r, runs, recent)
	}
}

func historyError(w http.ResponseWriter, err error) {
	logging.Error("Failed to load sync history", "error", err)
	respondJSON(w, http.StatusInternalServerError, dtos.SyncErrorResponse{
		Status:  string(constants.APIStatusError),
		Message: err.Error(),
	})
}

func (h *Handlers) writeStatus(w http.ResponseWriter, r *http.Request, runs map[string]*entities.SyncRun, recent []entities.SyncRun) {
	last := make(map[string]*dtos.RunSummary, len(runs))
	for trigger, run := range runs {
		summary := toRunSummary(*run)
		summary.Trigger = ""
		last[trigger] = &summary
	}
	history := make([]dtos.RunSummary, 0, len(recent))
	for _, run := range recent {
		history = append(history, toRunSummary(run))
	}

	resp := dtos.SyncStatusResponse{
		Status:         string(constants.APIStatusOk),
		Store:          h.settings.Store,
		DocumentKey:    h.settings.DocumentKey,
		Interval:       h.settings.Interval.String(),
		HistoryEnabled: h.sync.HistoryEnabled(),
		LastRuns:       last,
		RecentRuns:     history,
	}

	// An unreachable store leaves the document summary out; /healthCheck reports it.
	snap, err := h.sync.TargetSnapshot(r.Context())
	if err != nil {
		logging.Warn("Failed to read ADV document for status", "error", err)
	} else {
		resp.Target = &dtos.TargetSummary{Entries: snap.Entries}
		if !snap.UpdatedAt.IsZero() {
			updatedAt := snap.UpdatedAt
			resp.Target.UpdatedAt = &updatedAt
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func toRunSummary(run entities.SyncRun) dtos.RunSummary {
	return dtos.RunSummary{
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Outcome:    run.Outcome,
		Imported:   run.Imported,
		Error:      run.ErrorMessage.String,
	}
}
