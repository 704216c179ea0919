package constants

// Dolibarr read queries. %[1]s is the table prefix (llxfb_ on the production instance).
// IN (?) placeholders are expanded with sqlx.In.
const (
	SelectDraftOrders = `
	SELECT rowid, ref, date_creation, fk_user_author, fk_soc
	FROM %[1]scommande
	WHERE fk_statut = ?
	ORDER BY rowid
	`

	SelectAuthorsByID = `
	SELECT rowid, firstname, lastname
	FROM %[1]suser
	WHERE rowid IN (?)
	`

	SelectCustomersByID = `
	SELECT rowid, nom, phone, town
	FROM %[1]ssociete
	WHERE rowid IN (?)
	`

	SelectOrderLinesByOrder = `
	SELECT rowid, fk_commande
	FROM %[1]scommandedet
	WHERE fk_commande IN (?)
	ORDER BY rowid
	`

	SelectLineOfferCodes = `
	SELECT fk_object, vad_vel AS attr_value
	FROM %[1]scommandedet_extrafields
	WHERE fk_object IN (?)
	`

	SelectOrderContractRefs = `
	SELECT fk_object, val_cont AS attr_value
	FROM %[1]scommande_extrafields
	WHERE fk_object IN (?)
	`
)
