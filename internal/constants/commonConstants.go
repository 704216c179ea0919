package constants

type (
	APIStatus string
)

const (
	APIStatusSuccess APIStatus = "success"
	APIStatusError   APIStatus = "error"
	APIStatusOk      APIStatus = "ok"

	// DraftOrderStatus is llx_commande.fk_statut for orders still in draft.
	DraftOrderStatus = 0
)
