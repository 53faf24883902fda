package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

// --- In-memory store with transactional rollback ---

type memState struct {
	products  map[string]product.Product
	orders    map[string]*Order
	ids       []string
	cartLines map[string][]cart.Line
	promos    map[string]string
}

func (s *memState) clone() *memState {
	c := &memState{
		products:  make(map[string]product.Product, len(s.products)),
		orders:    make(map[string]*Order, len(s.orders)),
		ids:       append([]string(nil), s.ids...),
		cartLines: make(map[string][]cart.Line, len(s.cartLines)),
		promos:    make(map[string]string, len(s.promos)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.cartLines {
		c.cartLines[k] = append([]cart.Line(nil), v...)
	}
	for k, v := range s.promos {
		c.promos[k] = v
	}
	return c
}

func copyOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp
}

type memDB struct {
	st      *memState
	seq     int
	txCount int
	// afterTx runs once the transaction function returns.
	afterTx func()
}

func newMemDB(products ...product.Product) *memDB {
	st := &memState{
		products:  make(map[string]product.Product),
		orders:    make(map[string]*Order),
		cartLines: make(map[string][]cart.Line),
		promos:    make(map[string]string),
	}
	for _, p := range products {
		st.products[p.ID] = p
	}
	return &memDB{st: st}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	db.txCount++
	if db.afterTx != nil {
		defer db.afterTx()
	}
	snapshot := db.st.clone()
	if err := fn(ctx, memTx{db: db}); err != nil {
		db.st = snapshot
		return err
	}
	return nil
}

func (db *memDB) stock(id string) int {
	return db.st.products[id].StockQuantity
}

type memTx struct{ db *memDB }

func (t memTx) Stock() product.Stock   { return memStock{db: t.db} }
func (t memTx) Orders() Repository     { return memOrders{db: t.db} }
func (t memTx) Carts() cart.Repository { return memCarts{db: t.db} }

// memProducts reads the catalog. With stale set it serves that snapshot
// instead of live stock.
type memProducts struct {
	db    *memDB
	stale map[string]product.Product
}

func (m memProducts) source() map[string]product.Product {
	if m.stale != nil {
		return m.stale
	}
	return m.db.st.products
}

func (m memProducts) List(_ context.Context, _ product.Filter) ([]product.Product, error) {
	return nil, nil
}

func (m memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.source()[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.source()[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memStock struct{ db *memDB }

func (m memStock) DecrementStock(_ context.Context, id string, amount int) error {
	p, ok := m.db.st.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.StockQuantity < amount {
		return &product.InsufficientStockError{ProductID: id, Available: p.StockQuantity, Requested: amount}
	}
	p.StockQuantity -= amount
	m.db.st.products[id] = p
	return nil
}

func (m memStock) IncrementStock(_ context.Context, id string, amount int) error {
	p, ok := m.db.st.products[id]
	if !ok {
		return product.ErrNotFound
	}
	p.StockQuantity += amount
	m.db.st.products[id] = p
	return nil
}

type memOrders struct{ db *memDB }

func (m memOrders) Create(_ context.Context, o *Order) error {
	m.db.seq++
	o.ID = fmt.Sprintf("order-%d", m.db.seq)
	for i := range o.Items {
		o.Items[i].ID = fmt.Sprintf("%s-item-%d", o.ID, i+1)
	}
	m.db.st.orders[o.ID] = copyOrder(o)
	m.db.st.ids = append(m.db.st.ids, o.ID)
	return nil
}

func (m memOrders) Get(_ context.Context, id string) (*Order, error) {
	o, ok := m.db.st.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m memOrders) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return m.Get(ctx, id)
}

func (m memOrders) List(_ context.Context, f Filter) ([]Order, error) {
	var out []Order
	for i := len(m.db.st.ids) - 1; i >= 0; i-- {
		o := m.db.st.orders[m.db.st.ids[i]]
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (m memOrders) UpdateStatus(_ context.Context, id string, ch StatusChange) error {
	o, ok := m.db.st.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = ch.Status
	if ch.TrackingNumber != "" {
		o.TrackingNumber = ch.TrackingNumber
	}
	if ch.Notes != "" {
		o.Notes = ch.Notes
	}
	if ch.DeliveredAt != nil {
		o.DeliveredAt = ch.DeliveredAt
	}
	o.UpdatedAt = ch.UpdatedAt
	return nil
}

func (m memOrders) MarkCancelled(_ context.Context, id, reason string, at time.Time) error {
	o, ok := m.db.st.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = StatusCancelled
	o.CancelReason = reason
	o.UpdatedAt = at
	return nil
}

func (m memOrders) Stats(_ context.Context) (*Stats, error) {
	st := &Stats{ByStatus: make(map[Status]int), Revenue: decimal.Zero}
	for _, o := range m.db.st.orders {
		st.TotalOrders++
		st.ByStatus[o.Status]++
		if o.Status != StatusCancelled {
			st.Revenue = st.Revenue.Add(o.TotalAmount)
		}
	}
	return st, nil
}

type memCarts struct{ db *memDB }

func (m memCarts) Get(_ context.Context, userID string) (*cart.Cart, error) {
	lines, ok := m.db.st.cartLines[userID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	c := &cart.Cart{UserID: userID, PromoCode: m.db.st.promos[userID]}
	for _, l := range lines {
		p := m.db.st.products[l.ProductID]
		l.ProductName = p.Name
		l.ProductActive = p.IsActive
		c.Lines = append(c.Lines, l)
	}
	sort.Slice(c.Lines, func(i, j int) bool { return c.Lines[i].ID < c.Lines[j].ID })
	return c, nil
}

func (m memCarts) Create(_ context.Context, userID string) error {
	if _, ok := m.db.st.cartLines[userID]; !ok {
		m.db.st.cartLines[userID] = []cart.Line{}
	}
	return nil
}

func (m memCarts) SaveLine(_ context.Context, userID string, line cart.Line) error {
	m.db.st.cartLines[userID] = append(m.db.st.cartLines[userID], line)
	return nil
}

func (m memCarts) DeleteLine(_ context.Context, userID, lineID string) error {
	lines := m.db.st.cartLines[userID]
	for i := range lines {
		if lines[i].ID == lineID {
			m.db.st.cartLines[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrLineNotFound
}

func (m memCarts) DeleteLines(_ context.Context, userID string) error {
	m.db.st.cartLines[userID] = []cart.Line{}
	return nil
}

func (m memCarts) SetPromo(_ context.Context, userID, code string) error {
	m.db.st.promos[userID] = code
	return nil
}

// memIdempotency mirrors the Redis store: "" marks a key in flight and
// calls on a done context fail.
type memIdempotency struct {
	keys map[string]string
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: make(map[string]string)}
}

func (m *memIdempotency) Reserve(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if id, ok := m.keys[key]; ok {
		return id, false, nil
	}
	m.keys[key] = ""
	return "", true, nil
}

func (m *memIdempotency) Complete(ctx context.Context, key, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.keys[key] = orderID
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delete(m.keys, key)
	return nil
}
