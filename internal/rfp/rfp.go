package rfp

import (
	"encoding/json"
	"strings"
	"time"
)

// Item is a single requested line of a requirement set.
type Item struct {
	Name           string         `json:"name"`
	Quantity       int            `json:"quantity"`
	Specifications map[string]any `json:"specifications,omitempty"`
}

// RequirementSet is the structured form of a procurement request.
type RequirementSet struct {
	ID                     string   `json:"id,omitempty"`
	Title                  string   `json:"title"`
	Description            string   `json:"description"`
	Items                  []Item   `json:"items"`
	Budget                 *float64 `json:"budget,omitempty"`
	DeliveryDays           *int     `json:"deliveryDays,omitempty"`
	PaymentTerms           string   `json:"paymentTerms,omitempty"`
	WarrantyYears          *float64 `json:"warrantyYears,omitempty"`
	AdditionalRequirements []string `json:"additionalRequirements,omitempty"`
}

// RFP is a stored requirement set together with the prompt it was built from.
type RFP struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	RawPrompt    string         `json:"rawPrompt"`
	Requirements RequirementSet `json:"structuredData"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Vendor is identified by its normalized email address.
type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// VendorUpdate carries the optional fields of a vendor update.
type VendorUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// RFPVendor is a vendor together with its dispatch state for one RFP.
type RFPVendor struct {
	Vendor
	Status VendorStatus `json:"status"`
	SentAt *time.Time   `json:"sentAt,omitempty"`
}

// RFPWithVendors is an RFP and every vendor it has a relationship with.
type RFPWithVendors struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Requirements RequirementSet `json:"structuredData"`
	Vendors      []RFPVendor    `json:"vendors"`
}

// QuotedItem is one line of a vendor quote.
type QuotedItem struct {
	Name           string         `json:"name"`
	Quantity       *float64       `json:"quantity"`
	UnitPrice      *float64       `json:"unitPrice"`
	TotalPrice     *float64       `json:"totalPrice"`
	Specifications map[string]any `json:"specifications,omitempty"`
}

// ExtractedProposal is the structured reading of a vendor reply.
// Nil fields mean the vendor did not state the value.
type ExtractedProposal struct {
	Items              []QuotedItem `json:"items"`
	TotalPrice         *float64     `json:"totalPrice"`
	DeliveryDays       *int         `json:"deliveryDays"`
	PaymentTerms       PaymentTerms `json:"paymentTerms"`
	Warranty           *string      `json:"warranty"`
	AdditionalServices []string     `json:"additionalServices"`
	Notes              *string      `json:"notes"`
	Confidence         *float64     `json:"confidence"`
}

// PaymentTerms holds one or more payment term strings. It is encoded as a
// plain string when it holds a single entry and as null when empty.
type PaymentTerms []string

func (p PaymentTerms) MarshalJSON() ([]byte, error) {
	switch len(p) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(p[0])
	default:
		return json.Marshal([]string(p))
	}
}

func (p *PaymentTerms) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = TermsFrom(raw)
	return nil
}

// TermsFrom converts a decoded JSON value into payment terms, dropping blanks.
func TermsFrom(v any) PaymentTerms {
	var terms PaymentTerms
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			terms = append(terms, s)
		}
	case []any:
		for _, entry := range val {
			if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
				terms = append(terms, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range val {
			if strings.TrimSpace(s) != "" {
				terms = append(terms, strings.TrimSpace(s))
			}
		}
	}
	return terms
}

func (p PaymentTerms) String() string {
	return strings.Join(p, "; ")
}

// Breakdown is the per-criterion allocation of a score.
type Breakdown struct {
	Price        float64 `json:"price"`
	Delivery     float64 `json:"delivery"`
	Completeness float64 `json:"completeness"`
	Terms        float64 `json:"terms"`
	Value        float64 `json:"value"`
}

// Total sums the criteria.
func (b Breakdown) Total() float64 {
	return b.Price + b.Delivery + b.Completeness + b.Terms + b.Value
}

// Assessment is the outcome of scoring one proposal.
type Assessment struct {
	Score      float64    `json:"score"`
	Evaluation string     `json:"evaluation"`
	Breakdown  *Breakdown `json:"breakdown,omitempty"`
	Fallback   bool       `json:"fallback"`
	Raw        string     `json:"-"`
}

// Proposal is a scored vendor submission for one RFP.
type Proposal struct {
	ID            string            `json:"id"`
	RFPID         string            `json:"rfpId"`
	VendorID      string            `json:"vendorId"`
	VendorName    string            `json:"vendorName"`
	VendorEmail   string            `json:"vendorEmail"`
	RawEmailBody  string            `json:"rawEmailBody"`
	ExtractedData ExtractedProposal `json:"extractedData"`
	Score         float64           `json:"aiScore"`
	Evaluation    string            `json:"aiEvaluation"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// Recommendation names the single preferred vendor of a comparison.
type Recommendation struct {
	RecommendedVendorID string `json:"recommendedVendorId"`
	Reasoning           string `json:"reasoning"`
	ComparisonSummary   string `json:"comparisonSummary"`
}

// ComparisonRow is one proposal as presented in a comparison.
type ComparisonRow struct {
	ProposalID    string            `json:"id"`
	VendorID      string            `json:"vendorId"`
	VendorName    string            `json:"vendorName"`
	VendorEmail   string            `json:"vendorEmail"`
	TotalPrice    *float64          `json:"totalPrice"`
	Score         float64           `json:"aiScore"`
	Evaluation    string            `json:"aiEvaluation"`
	ExtractedData ExtractedProposal `json:"extractedData"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// Comparison ranks every proposal of one RFP.
type Comparison struct {
	RFPID          string          `json:"rfpId"`
	Title          string          `json:"rfpTitle"`
	Proposals      []ComparisonRow `json:"proposals"`
	Recommendation *Recommendation `json:"aiRecommendations,omitempty"`
}

// TopVendor is the best scored vendor in proposal statistics.
type TopVendor struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Stats summarises the scores of an RFP's proposals.
type Stats struct {
	TotalProposals int        `json:"totalProposals"`
	AverageScore   *float64   `json:"averageScore,omitempty"`
	HighestScore   *float64   `json:"highestScore,omitempty"`
	LowestScore    *float64   `json:"lowestScore,omitempty"`
	TopVendor      *TopVendor `json:"topVendor,omitempty"`
}

// InboundEmail is a stored vendor reply awaiting or past processing.
type InboundEmail struct {
	ID              string     `json:"id"`
	From            string     `json:"from"`
	Subject         string     `json:"subject"`
	RawBody         string     `json:"rawBody"`
	VendorID        string     `json:"vendorId,omitempty"`
	RFPID           string     `json:"rfpId,omitempty"`
	Processed       bool       `json:"processed"`
	ProcessingError string     `json:"processingError,omitempty"`
	ProposalID      string     `json:"proposalId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
