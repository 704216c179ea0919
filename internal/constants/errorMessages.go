package constants

import "errors"

var (
	// ErrSourceUnavailable wraps any connectivity or query failure against Dolibarr.
	ErrSourceUnavailable = errors.New("source database unavailable")
	// ErrInvalidPayload is returned when a webhook body lacks its reference.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrTxConflict is returned when the target document kept changing underneath
	// a transaction until the retry budget ran out.
	ErrTxConflict = errors.New("target document transaction conflict")
	// ErrTargetStore wraps failures of the ADV document store itself.
	ErrTargetStore = errors.New("target store failure")
)

const (
	MsgSyncFailed        = "Erreur serveur interne lors de la synchronisation"
	MsgSyncFailedDetails = "Check database connectivity and credentials."
	MsgMissingRef        = "Payload invalide : ref manquante"
	MsgMalformedBody     = "Payload invalide : JSON attendu"
	MsgMethodNotAllowed  = "Method Not Allowed"
	MsgWebhookImported   = "Importé dans ADV"
	MsgWebhookDuplicate  = "Commande déjà présente dans ADV, ignorée"
	MsgUnauthorized      = "Unauthorized"
	MsgTooManyRequests   = "Too many requests"
)
