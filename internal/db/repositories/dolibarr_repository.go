package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"diversifia/ordersync/internal/constants"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/metrics"
	"diversifia/ordersync/internal/models/entities"
	"diversifia/ordersync/internal/orders"

	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"
)

// DolibarrRepo reads draft orders and their reference data from Dolibarr.
// It never writes to the source database.
type DolibarrRepo struct {
	db      *sqlx.DB
	prefix  string
	authors *cache.Cache
	metrics *metrics.MetricsRegistry
}

// NewDolibarrRepo creates the extractor. A zero authorTTL disables the author name cache.
// metricsReg may be nil.
func NewDolibarrRepo(db *sqlx.DB, tablePrefix string, authorTTL time.Duration, metricsReg *metrics.MetricsRegistry) *DolibarrRepo {
	r := &DolibarrRepo{
		db:      db,
		prefix:  tablePrefix,
		metrics: metricsReg,
	}
	if authorTTL > 0 {
		r.authors = cache.New(authorTTL, 2*authorTTL)
	}
	return r
}

// Ping checks that a pooled connection can reach Dolibarr.
func (r *DolibarrRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FetchDraftBatch runs the extraction queries on a single pooled connection and
// assembles the lookup maps. Every secondary query is scoped to the ids of the
// draft batch. Any failure aborts the whole extraction.
func (r *DolibarrRepo) FetchDraftBatch(ctx context.Context) (*entities.DraftBatch, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", constants.ErrSourceUnavailable, err)
	}
	defer func() {
		conn.Close()
		r.observePool()
	}()

	batch := &entities.DraftBatch{
		AuthorNames:  make(map[int64]string),
		Customers:    make(map[int64]entities.DoliSociete),
		OfferCodes:   make(map[int64]int),
		ContractRefs: make(map[int64]string),
	}

	if err := sqlx.SelectContext(ctx, conn, &batch.Orders,
		r.db.Rebind(r.query(constants.SelectDraftOrders)), constants.DraftOrderStatus); err != nil {
		return nil, r.wrap("draft orders", err)
	}
	if len(batch.Orders) == 0 {
		return batch, nil
	}

	orderIDs := make([]int64, 0, len(batch.Orders))
	authorIDs := newIDSet()
	socIDs := newIDSet()
	for _, o := range batch.Orders {
		orderIDs = append(orderIDs, o.RowID)
		if o.AuthorID.Valid {
			authorIDs.add(o.AuthorID.Int64)
		}
		if o.SocID.Valid && o.SocID.Int64 != 0 {
			socIDs.add(o.SocID.Int64)
		}
	}

	if err := r.loadAuthors(ctx, conn, authorIDs.list(), batch.AuthorNames); err != nil {
		return nil, err
	}

	var customers []entities.DoliSociete
	if err := r.selectIn(ctx, conn, &customers, constants.SelectCustomersByID, socIDs.list()); err != nil {
		return nil, r.wrap("customers", err)
	}
	for _, c := range customers {
		batch.Customers[c.RowID] = c
	}

	var lines []entities.DoliOrderLine
	if err := r.selectIn(ctx, conn, &lines, constants.SelectOrderLinesByOrder, orderIDs); err != nil {
		return nil, r.wrap("order lines", err)
	}
	// Lines arrive by rowid, so the last one seen per order carries the offer code.
	lastLine := make(map[int64]int64, len(lines))
	for _, l := range lines {
		lastLine[l.OrderID] = l.RowID
	}
	lineIDs := newIDSet()
	for _, lineID := range lastLine {
		lineIDs.add(lineID)
	}

	var lineExtras []entities.DoliExtraField
	if err := r.selectIn(ctx, conn, &lineExtras, constants.SelectLineOfferCodes, lineIDs.list()); err != nil {
		return nil, r.wrap("line extrafields", err)
	}
	codeByLine := make(map[int64]int, len(lineExtras))
	for _, e := range lineExtras {
		if !e.Value.Valid {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(e.Value.String))
		if err != nil {
			continue
		}
		codeByLine[e.ObjectID] = code
	}
	for orderID, lineID := range lastLine {
		if code, ok := codeByLine[lineID]; ok {
			batch.OfferCodes[orderID] = code
		}
	}

	var orderExtras []entities.DoliExtraField
	if err := r.selectIn(ctx, conn, &orderExtras, constants.SelectOrderContractRefs, orderIDs); err != nil {
		return nil, r.wrap("order extrafields", err)
	}
	for _, e := range orderExtras {
		if e.Value.Valid {
			batch.ContractRefs[e.ObjectID] = e.Value.String
		}
	}

	logging.Debug("Dolibarr draft batch extracted",
		"orders", len(batch.Orders),
		"authors", len(batch.AuthorNames),
		"customers", len(batch.Customers),
		"lines", len(lines),
		"offer_codes", len(batch.OfferCodes),
		"contract_refs", len(batch.ContractRefs),
	)

	return batch, nil
}

// loadAuthors fills names from the cache and queries only the ids it is missing.
func (r *DolibarrRepo) loadAuthors(ctx context.Context, q sqlx.QueryerContext, ids []int64, names map[int64]string) error {
	missing := ids
	if r.authors != nil {
		missing = make([]int64, 0, len(ids))
		for _, id := range ids {
			if v, ok := r.authors.Get(authorCacheKey(id)); ok {
				names[id] = v.(string)
				continue
			}
			missing = append(missing, id)
		}
	}

	var users []entities.DoliUser
	if err := r.selectIn(ctx, q, &users, constants.SelectAuthorsByID, missing); err != nil {
		return r.wrap("authors", err)
	}
	for _, u := range users {
		name := orders.AuthorName(u.FirstName.String, u.LastName.String)
		names[u.RowID] = name
		if r.authors != nil {
			r.authors.SetDefault(authorCacheKey(u.RowID), name)
		}
	}
	return nil
}

func (r *DolibarrRepo) selectIn(ctx context.Context, q sqlx.QueryerContext, dest interface{}, tmpl string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(r.query(tmpl), ids)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, r.db.Rebind(query), args...)
}

func (r *DolibarrRepo) query(tmpl string) string {
	return fmt.Sprintf(tmpl, r.prefix)
}

func (r *DolibarrRepo) wrap(step string, err error) error {
	return fmt.Errorf("%w: query %s: %w", constants.ErrSourceUnavailable, step, err)
}

func (r *DolibarrRepo) observePool() {
	if r.metrics == nil {
		return
	}
	stats := r.db.Stats()
	r.metrics.SourceConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	r.metrics.SourceConnections.WithLabelValues("idle").Set(float64(stats.Idle))
}

func authorCacheKey(id int64) string {
	return "doli_author:" + strconv.FormatInt(id, 10)
}

// idSet keeps first-seen order so queries are deterministic.
type idSet struct {
	seen map[int64]struct{}
	ids  []int64
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[int64]struct{})}
}

func (s *idSet) add(id int64) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s *idSet) list() []int64 { return s.ids }
