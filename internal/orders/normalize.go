package orders

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"diversifia/ordersync/internal/catalog"
)

// CleanRef trims s and collapses every internal whitespace run to a single space.
func CleanRef(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripSpaces removes all whitespace, used for phone numbers.
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// AuthorName composes a salesperson display name from Dolibarr first/last names.
func AuthorName(first, last string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return UnknownSeller
	}
	return name
}

// ResolveContractRef prefers the extra-attribute reference over the raw order ref.
// Both are normalised; an override made only of whitespace does not count.
func ResolveContractRef(override, ref string) string {
	if c := CleanRef(override); c != "" {
		return c
	}
	return CleanRef(ref)
}

// BuildCandidate assembles the ADV entry for a batch-imported source order.
// customer may be nil, in which case the candidate is flagged unusable.
// author is the resolved salesperson name, empty when the author is unknown.
func BuildCandidate(src SourceOrder, customer *Customer, author string, now time.Time) Candidate {
	nowStr := now.UTC().Format(DateLayout)

	deposit := nowStr
	if !src.CreatedAt.IsZero() {
		deposit = src.CreatedAt.UTC().Format(DateLayout)
	}

	if author == "" {
		author = SyncSeller
	}

	order := ImportedOrder{
		ID:             fmt.Sprintf("%s%d", IDPrefix, src.ID),
		RefContrat:     ResolveContractRef(src.ContractRef, src.Ref),
		DoliRef:        CleanRef(src.Ref),
		DateDepot:      deposit,
		DateSaisi:      nowStr,
		DateTraitement: nowStr,
		Commercial:     CleanRef(author),
		Offre:          catalog.Label(src.OfferCode),
		Validation:     InitialValidation,
		Etape:          InitialStage,
		StatutSI:       InitialSIStatus,
		IsConfirmed:    false,
		LinkCRM:        fmt.Sprintf("Dolibarr ID: %d", src.ID),
	}

	if customer == nil {
		return Candidate{Order: order, MissingCustomer: true}
	}

	name := customer.Name
	if strings.TrimSpace(name) == "" {
		name = UnknownCustomer
	}
	order.RaisonSociale = CleanRef(strings.ToUpper(name))
	order.Telephone = StripSpaces(customer.Phone)
	order.Ville = CleanRef(customer.Town)

	return Candidate{Order: order}
}

// BuildWebhookCandidate assembles the ADV entry for an order pushed by webhook.
// The caller validates that the reference is present.
func BuildWebhookCandidate(in WebhookOrder, now time.Time) Candidate {
	nowStr := now.UTC().Format(DateLayout)
	ref := CleanRef(in.Ref)

	name := CleanRef(in.SocName)
	if name == "" {
		name = UnknownCustomer
	}

	return Candidate{Order: ImportedOrder{
		ID:             IDPrefix + ref,
		RefContrat:     ref,
		DoliRef:        ref,
		DateDepot:      nowStr,
		DateSaisi:      nowStr,
		DateTraitement: nowStr,
		Commercial:     WebhookSeller,
		RaisonSociale:  name,
		Telephone:      StripSpaces(in.SocPhone),
		Ville:          CleanRef(in.SocTown),
		Offre:          catalog.PendingQualification,
		Validation:     InitialValidation,
		Etape:          InitialStage,
		StatutSI:       InitialSIStatus,
		IsConfirmed:    true,
		LinkCRM:        "Dolibarr Ref: " + ref,
	}}
}
