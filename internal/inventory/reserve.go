package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be a non-negative integer")

// KeySeparator joins product and pattern ids in an order line key.
const KeySeparator = " - "

// Line is one requested order line, keyed "<productId> - <patternId>".
type Line struct {
	Key      string
	Quantity int
}

// ParseLineKey splits a line key into exactly two non-empty ids.
func ParseLineKey(key string) (productID, patternID string, ok bool) {
	parts := strings.Split(key, KeySeparator)
	if len(parts) != 2 {
		return "", "", false
	}
	productID, patternID = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if productID == "" || patternID == "" {
		return "", "", false
	}
	return productID, patternID, true
}

type Outcome string

const (
	Fulfilled    Outcome = "fulfilled"
	Insufficient Outcome = "insufficient"
	Skipped      Outcome = "skipped"
)

type SkipReason string

const (
	SkipMalformedKey    SkipReason = "malformed_key"
	SkipPatternNotFound SkipReason = "pattern_not_found"
)

// Shortfall describes a line that cannot be served. Available is what was left for the
// line after earlier lines of the same order took their share.
type Shortfall struct {
	Key        string
	Kind       Kind
	Requested  decimal.Decimal
	Available  decimal.Decimal
	FabricID   string
	FabricName string
	// MissingFabric is set when the pattern links to a fabric row that no longer exists.
	MissingFabric bool
}

func (s Shortfall) String() string {
	if s.MissingFabric {
		return fmt.Sprintf("%s (Fabric %s not found)", s.Key, s.FabricID)
	}
	places := int32(2)
	if s.Kind == KindUnits {
		places = 0
	}
	out := fmt.Sprintf("%s (Requested: %s, Available: %s", s.Key,
		s.Requested.StringFixed(places), s.Available.StringFixed(places))
	if s.FabricID != "" {
		name := s.FabricName
		if name == "" {
			name = s.FabricID
		}
		out += ", Fabric: " + name
	}
	return out + ")"
}

type LineOutcome struct {
	Index       int
	Line        Line
	ProductID   string
	PatternID   string
	FabricID    string // set when the line drew on a shared fabric
	Outcome     Outcome
	SkipReason  SkipReason
	Requirement Requirement
	Shortfall   *Shortfall
}

type Result struct {
	Lines      []LineOutcome
	Shortfalls []Shortfall
}

// OK reports whether every non-skipped line was served.
func (r Result) OK() bool { return len(r.Shortfalls) == 0 }

func (r Result) Skipped() []LineOutcome {
	var out []LineOutcome
	for _, l := range r.Lines {
		if l.Outcome == Skipped {
			out = append(out, l)
		}
	}
	return out
}

type patternKey struct{ product, pattern string }

// pending accumulates decrements per row in first-seen order so that several lines
// drawing on the same row are checked against one locked value.
type pending[K comparable, V any] struct {
	order []K
	by    map[K]V
}

func newPending[K comparable, V any]() *pending[K, V] {
	return &pending[K, V]{by: map[K]V{}}
}

func (p *pending[K, V]) get(k K) V { return p.by[k] }

func (p *pending[K, V]) set(k K, v V) {
	if _, ok := p.by[k]; !ok {
		p.order = append(p.order, k)
	}
	p.by[k] = v
}

// Plan is the evaluated form of an order: the per-line outcomes plus the consolidated
// decrements that Apply would write. The row locks it was built under must still be held
// when Apply runs, so both steps belong to one transaction.
type Plan struct {
	Result

	units       *pending[patternKey, int]
	ownMeters   *pending[patternKey, decimal.Decimal]
	fabricMeter *pending[string, decimal.Decimal]
	fabricNames map[string]string
}

// Reserve evaluates every line and, only when all of them fit, applies the decrements.
// On shortfall nothing is written; the caller rolls back.
func Reserve(ctx context.Context, l Ledger, lines []Line) (Result, error) {
	plan, err := Evaluate(ctx, l, lines)
	if err != nil {
		return Result{}, err
	}
	if !plan.OK() {
		return plan.Result, nil
	}
	if err := plan.Apply(ctx, l); err != nil {
		return Result{}, err
	}
	return plan.Result, nil
}

// Evaluate locks and checks every line without writing anything. Lines are processed,
// and shortfalls reported, in submission order.
func Evaluate(ctx context.Context, l Ledger, lines []Line) (*Plan, error) {
	for i, ln := range lines {
		if ln.Quantity < 0 {
			return nil, fmt.Errorf("line %d (%s): %w", i+1, ln.Key, ErrInvalidQuantity)
		}
	}

	var (
		res         = Result{Lines: make([]LineOutcome, 0, len(lines))}
		units       = newPending[patternKey, int]()
		ownMeters   = newPending[patternKey, decimal.Decimal]()
		fabricMeter = newPending[string, decimal.Decimal]()
		fabricNames = map[string]string{}
	)

	for i, ln := range lines {
		out := LineOutcome{Index: i, Line: ln}

		productID, patternID, ok := ParseLineKey(ln.Key)
		if !ok {
			out.Outcome, out.SkipReason = Skipped, SkipMalformedKey
			log.Printf("reserve: skipping line %d %q: malformed key", i+1, ln.Key)
			res.Lines = append(res.Lines, out)
			continue
		}
		out.ProductID, out.PatternID = productID, patternID

		ps, err := l.LockPattern(ctx, productID, patternID)
		if errors.Is(err, ErrNotFound) {
			out.Outcome, out.SkipReason = Skipped, SkipPatternNotFound
			log.Printf("reserve: skipping line %d %q: pattern not found", i+1, ln.Key)
			res.Lines = append(res.Lines, out)
			continue
		}
		if err != nil {
			return nil, err
		}

		cons, err := l.Consumption(ctx, productID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		req := ResolveRequirement(cons, ps.StockType, ln.Quantity)
		out.Requirement = req
		if req.ZeroConsumption {
			log.Printf("reserve: product %s has no consumption configured, line %q needs 0m", productID, ln.Key)
		}

		pk := patternKey{productID, patternID}
		var short *Shortfall

		switch {
		case req.Kind == KindUnits:
			avail := ps.AvailableQuantity - units.get(pk)
			if req.Units > avail {
				short = &Shortfall{Kind: KindUnits,
					Requested: decimal.NewFromInt(int64(req.Units)), Available: decimal.NewFromInt(int64(avail))}
			} else {
				units.set(pk, units.get(pk)+req.Units)
			}

		case ps.Linked():
			out.FabricID = ps.FabricID
			fs, err := l.LockFabric(ctx, ps.FabricID)
			if errors.Is(err, ErrNotFound) {
				short = &Shortfall{Kind: KindMeters, Requested: req.Meters, FabricID: ps.FabricID, MissingFabric: true}
				break
			}
			if err != nil {
				return nil, err
			}
			fabricNames[fs.ID] = fs.Name
			avail := fs.AvailableMeters.Sub(fabricMeter.get(fs.ID))
			if req.Meters.GreaterThan(avail) {
				short = &Shortfall{Kind: KindMeters, Requested: req.Meters, Available: avail,
					FabricID: fs.ID, FabricName: fs.Name}
			} else {
				fabricMeter.set(fs.ID, fabricMeter.get(fs.ID).Add(req.Meters))
			}

		default:
			avail := ps.AvailableMeters.Sub(ownMeters.get(pk))
			if req.Meters.GreaterThan(avail) {
				short = &Shortfall{Kind: KindMeters, Requested: req.Meters, Available: avail}
			} else {
				ownMeters.set(pk, ownMeters.get(pk).Add(req.Meters))
			}
		}

		if short != nil {
			short.Key = ln.Key
			out.Outcome, out.Shortfall = Insufficient, short
			res.Shortfalls = append(res.Shortfalls, *short)
		} else {
			out.Outcome = Fulfilled
		}
		res.Lines = append(res.Lines, out)
	}

	return &Plan{Result: res, units: units, ownMeters: ownMeters, fabricMeter: fabricMeter, fabricNames: fabricNames}, nil
}

// Apply writes the consolidated decrements. It refuses a plan with shortfalls.
func (p *Plan) Apply(ctx context.Context, l Ledger) error {
	if !p.OK() {
		return fmt.Errorf("apply: %d line(s) short of stock", len(p.Shortfalls))
	}
	for _, k := range p.units.order {
		if n := p.units.by[k]; n > 0 {
			if err := l.DecrementUnits(ctx, k.product, k.pattern, n); err != nil {
				return err
			}
		}
	}
	for _, k := range p.ownMeters.order {
		if m := p.ownMeters.by[k]; m.IsPositive() {
			if err := l.DecrementMeters(ctx, k.product, k.pattern, m); err != nil {
				return err
			}
		}
	}
	for _, id := range p.fabricMeter.order {
		if m := p.fabricMeter.by[id]; m.IsPositive() {
			if err := l.DecrementFabricMeters(ctx, id, m); err != nil {
				return fmt.Errorf("fabric %s: %w", p.fabricNames[id], err)
			}
		}
	}
	return nil
}
