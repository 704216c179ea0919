// Package orders holds the import rules for Dolibarr draft orders: reference
// normalisation, candidate construction and reconciliation against the ADV payload.
package orders

import "time"

// Workflow defaults applied to every imported order.
const (
	InitialValidation = "EN ATTENTE"
	InitialStage      = "ÉTUDE"
	InitialSIStatus   = "En Etudes"

	UnknownSeller   = "Vendeur Inconnu"
	SyncSeller      = "Dolibarr Sync"
	WebhookSeller   = "Dolibarr Import"
	UnknownCustomer = "Client Inconnu"

	IDPrefix = "DOLI-"

	// DefaultMaxEntries bounds the ADV payload; the oldest entries are evicted first.
	DefaultMaxEntries = 2000

	// DateLayout is the short ISO form used by the ADV screens.
	DateLayout = "2006-01-02T15:04"
)

// ImportedOrder is one entry of the ADV payload as written by the sync engine.
// Field names match the document consumed by the portal UI.
type ImportedOrder struct {
	ID                string `json:"id"`
	RefContrat        string `json:"refContrat"`
	DoliRef           string `json:"doliRef"`
	DateDepot         string `json:"dateDepot"`
	DateSaisi         string `json:"dateSaisi"`
	DateTraitement    string `json:"dateTraitement"`
	Commercial        string `json:"commercial"`
	RaisonSociale     string `json:"raisonSociale"`
	Telephone         string `json:"telephone"`
	Offre             string `json:"offre"`
	Ville             string `json:"ville"`
	Validation        string `json:"validation"`
	Etape             string `json:"etape"`
	StatutSI          string `json:"statutSi"`
	IsConfirmed       bool   `json:"isConfirmed"`
	LinkCRM           string `json:"linkCrm"`
	IsManuallyCreated bool   `json:"isManuallyCreated"`
	NFixe             string `json:"nFixe,omitempty"`
	NSerie            string `json:"nSerie,omitempty"`
}

// SourceOrder is a draft order read from Dolibarr, already joined with its
// extra attributes. It only lives for one reconciliation pass.
type SourceOrder struct {
	ID int64
	// Ref is the raw llx_commande.ref value.
	Ref string
	// ContractRef is the val_cont extra attribute; empty when absent.
	ContractRef string
	CreatedAt   time.Time
	AuthorID    int64
	CustomerID  int64
	// OfferCode comes from the first order line's vad_vel attribute.
	OfferCode *int
}

// Customer is the third party attached to a source order.
type Customer struct {
	ID    int64
	Name  string
	Phone string
	Town  string
}

// Candidate is an ImportedOrder waiting for reconciliation.
type Candidate struct {
	Order ImportedOrder
	// MissingCustomer marks candidates that must never be imported.
	MissingCustomer bool
}

// ContractRef is the primary dedup key of the candidate.
func (c Candidate) ContractRef() string { return c.Order.RefContrat }

// SourceRef is the secondary dedup key of the candidate.
func (c Candidate) SourceRef() string { return c.Order.DoliRef }

// WebhookOrder is the inline payload pushed by the Dolibarr trigger.
type WebhookOrder struct {
	Ref      string `json:"ref"`
	SocName  string `json:"soc_name"`
	SocPhone string `json:"soc_phone"`
	SocTown  string `json:"soc_town"`
}
