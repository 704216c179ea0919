package entities

import "database/sql"

// DoliUser is a row of llx_user.
type DoliUser struct {
	RowID     int64          `db:"rowid"`
	FirstName sql.NullString `db:"firstname"`
	LastName  sql.NullString `db:"lastname"`
}

// DoliOrder is a row of llx_commande.
type DoliOrder struct {
	RowID        int64          `db:"rowid"`
	Ref          sql.NullString `db:"ref"`
	DateCreation sql.NullTime   `db:"date_creation"`
	AuthorID     sql.NullInt64  `db:"fk_user_author"`
	SocID        sql.NullInt64  `db:"fk_soc"`
}

// DoliSociete is a row of llx_societe.
type DoliSociete struct {
	RowID int64          `db:"rowid"`
	Nom   sql.NullString `db:"nom"`
	Phone sql.NullString `db:"phone"`
	Town  sql.NullString `db:"town"`
}

// DoliOrderLine is a row of llx_commandedet.
type DoliOrderLine struct {
	RowID   int64 `db:"rowid"`
	OrderID int64 `db:"fk_commande"`
}

// DoliExtraField is one attribute of an *_extrafields table.
type DoliExtraField struct {
	ObjectID int64          `db:"fk_object"`
	Value    sql.NullString `db:"attr_value"`
}

// DraftBatch is everything one extraction returns, keyed by Dolibarr row ids.
type DraftBatch struct {
	Orders []DoliOrder
	// AuthorNames holds display names by llx_user.rowid.
	AuthorNames map[int64]string
	Customers   map[int64]DoliSociete
	// OfferCodes holds the last line's vad_vel by order rowid.
	OfferCodes map[int64]int
	// ContractRefs holds val_cont by order rowid.
	ContractRefs map[int64]string
}
