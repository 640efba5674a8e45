package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kuritho/vendo-finder-final/internal/reservation"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseReady      Phase = "ready"
	PhaseSubmitting Phase = "submitting"
	PhaseReceipt    Phase = "receipt"
	PhaseFailed     Phase = "failed"
)

// Receipt is the confirmation of an accepted order.
type Receipt struct {
	Code        string                     `json:"code"`
	OrderDate   string                     `json:"orderDate"`
	PurchasedAt *time.Time                 `json:"purchasedAt,omitempty"`
	TotalAmount decimal.Decimal            `json:"totalAmount"`
	MachineName string                     `json:"machineName"`
	Lines       []reservation.EnrichedLine `json:"lines"`
}

// State is the cart screen of one machine. Reduce never mutates its input.
type State struct {
	MachineID   string                     `json:"machineId"`
	MachineName string                     `json:"machineName"`
	Phase       Phase                      `json:"phase"`
	Items       reservation.Set            `json:"-"`
	Details     map[int]vendo.Product      `json:"-"`
	Lines       []reservation.EnrichedLine `json:"lines"`
	TotalAmount decimal.Decimal            `json:"totalAmount"`
	TotalItems  int                        `json:"totalItems"`
	Receipt     *Receipt                   `json:"receipt,omitempty"`
	Notice      string                     `json:"notice,omitempty"`
	Error       string                     `json:"error,omitempty"`
	BackLink    string                     `json:"backLink"`
}

// Empty reports whether the cart holds no lines.
func (s State) Empty() bool { return len(s.Items) == 0 }

type Action interface {
	apply(State) State
}

// LoadStarted enters the loading phase for MachineID.
type LoadStarted struct{ MachineID string }

type Loaded struct {
	MachineName string
	Items       reservation.Set
	Details     map[int]vendo.Product
}

type LoadFailed struct{ Err string }

// ItemsChanged replaces the lines after an edit. DropDetail, when non-zero,
// evicts the cached detail of that product id.
type ItemsChanged struct {
	Items      reservation.Set
	DropDetail int
}

type SubmitStarted struct{}

type SubmitSucceeded struct{ Receipt Receipt }

type SubmitFailed struct{ Notice string }

type ReceiptDismissed struct{}

type Noticed struct{ Message string }

func Reduce(s State, a Action) State {
	return a.apply(s)
}

func (a LoadStarted) apply(State) State {
	return State{
		MachineID: a.MachineID,
		Phase:     PhaseLoading,
		Items:     reservation.Set{},
		Details:   map[int]vendo.Product{},
		Lines:     []reservation.EnrichedLine{},
		BackLink:  catalogLink(a.MachineID),
	}
}

func (a Loaded) apply(s State) State {
	s.Phase = PhaseReady
	s.MachineName = a.MachineName
	s.Items = a.Items.Clone()
	s.Details = copyDetails(a.Details)
	s.Error = ""
	return withTotals(s)
}

func (a LoadFailed) apply(s State) State {
	s.Phase = PhaseFailed
	s.Error = a.Err
	return s
}

func (a ItemsChanged) apply(s State) State {
	s.Items = a.Items.Clone()
	s.Details = copyDetails(s.Details)
	if a.DropDetail != 0 {
		delete(s.Details, a.DropDetail)
	}
	s.Notice = ""
	return withTotals(s)
}

func (SubmitStarted) apply(s State) State {
	s.Phase = PhaseSubmitting
	s.Notice = ""
	return s
}

// apply shows the receipt. The cart itself is emptied along with the
// cached details; the receipt keeps its own copy of the lines.
func (a SubmitSucceeded) apply(s State) State {
	r := a.Receipt
	s.Phase = PhaseReceipt
	s.Receipt = &r
	s.Items = reservation.Set{}
	s.Details = map[int]vendo.Product{}
	return withTotals(s)
}

func (a SubmitFailed) apply(s State) State {
	s.Phase = PhaseReady
	s.Notice = a.Notice
	return s
}

func (ReceiptDismissed) apply(s State) State {
	s.Phase = PhaseReady
	s.Receipt = nil
	s.Notice = ""
	return s
}

func (a Noticed) apply(s State) State {
	s.Notice = a.Message
	return s
}

func withTotals(s State) State {
	s.Lines = reservation.Enrich(s.Items, s.Details)
	s.TotalAmount = reservation.Total(s.Lines)
	s.TotalItems = s.Items.Quantity()
	return s
}

func copyDetails(in map[int]vendo.Product) map[int]vendo.Product {
	out := make(map[int]vendo.Product, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func catalogLink(machineID string) string {
	return "/machines/" + machineID + "/catalog"
}
