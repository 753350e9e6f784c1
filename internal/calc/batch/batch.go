// Package batch runs the TPN engine over many prescriptions at once.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"NeoNest/internal/calc/tpn"

	"golang.org/x/sync/errgroup"
)

const (
	MaxItems = 500
	workers  = 8
)

var ErrNoItems = errors.New("no items")

// Item is one prescription with an optional label for the order it came from.
type Item struct {
	Label  string     `json:"label,omitempty"`
	Inputs tpn.Inputs `json:"inputs"`
}

// Outcome is the result for the item at Index. Exactly one of Result and
// Errors is set.
type Outcome struct {
	Index  int         `json:"index"`
	Label  string      `json:"label,omitempty"`
	Result *tpn.Result `json:"result,omitempty"`
	Errors []string    `json:"errors,omitempty"`
}

type Result struct {
	OK      int       `json:"ok"`
	Invalid int       `json:"invalid"`
	Items   []Outcome `json:"items"`
}

// Run calculates every item. Invalid prescriptions are reported per item and
// do not stop the batch; only cancellation does.
func Run(ctx context.Context, items []Item) (Result, error) {
	if len(items) == 0 {
		return Result{}, ErrNoItems
	}
	if len(items) > MaxItems {
		return Result{}, fmt.Errorf("too many items: %d > %d", len(items), MaxItems)
	}
	out := make([]Outcome, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = calcOne(i, it)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	res := Result{Items: out}
	for _, o := range out {
		if o.Result != nil {
			res.OK++
		} else {
			res.Invalid++
		}
	}
	return res, nil
}

func calcOne(i int, it Item) Outcome {
	o := Outcome{Index: i, Label: it.Label}
	r, err := tpn.Calculate(it.Inputs)
	if err != nil {
		if ve, ok := tpn.AsValidation(err); ok {
			o.Errors = ve.Errors
		} else {
			o.Errors = []string{err.Error()}
		}
		return o
	}
	o.Result = &r
	return o
}

// rawItem lets a request send partial inputs that overlay the defaults.
type rawItem struct {
	Label  string          `json:"label"`
	Inputs json.RawMessage `json:"inputs"`
}

// Decode reads {"items":[{"label":..,"inputs":{..}}]} with every item's
// inputs applied on top of defaults.
func Decode(data []byte, defaults tpn.Inputs) ([]Item, error) {
	var req struct {
		Items []rawItem `json:"items"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(req.Items))
	for i, raw := range req.Items {
		in := defaults
		if len(raw.Inputs) > 0 {
			if err := json.Unmarshal(raw.Inputs, &in); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
		items = append(items, Item{Label: raw.Label, Inputs: in})
	}
	return items, nil
}
