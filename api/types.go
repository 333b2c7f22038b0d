package api

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// User is the authenticated principal returned by login and /auth/me.
type User struct {
	ID          int64    `json:"id"`
	EmployeeNo  string   `json:"employee_no"`
	Name        string   `json:"name"`
	Department  string   `json:"department,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// LoginResult is the data of POST /auth/login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

// Page is a paginated list payload.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// PageQuery carries the common list filters.
type PageQuery struct {
	Page       int
	PageSize   int
	Keyword    string
	CategoryID int64
	Status     string
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.CategoryID > 0 {
		v.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return v
}

// Category is a node of the catalog tree.
type Category struct {
	ID       int64      `json:"id"`
	ParentID *int64     `json:"parent_id"`
	Name     string     `json:"name"`
	Sort     int        `json:"sort"`
	Children []Category `json:"children,omitempty"`
}

// SKU is a catalog product definition.
type SKU struct {
	ID             int64           `json:"id"`
	CategoryID     int64           `json:"category_id"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	Spec           string          `json:"spec"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	CoverURL       string          `json:"cover_url,omitempty"`
	Status         string          `json:"status,omitempty"`
	AvailableStock int             `json:"available_stock"`
}

// DisplayName is brand and model joined for listings.
func (s SKU) DisplayName() string {
	switch {
	case s.Brand == "":
		return s.Model
	case s.Model == "":
		return s.Brand
	}
	return s.Brand + " " + s.Model
}

// SKUInput is the body of admin SKU create and update calls.
type SKUInput struct {
	CategoryID     int64           `json:"category_id"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	Spec           string          `json:"spec"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	CoverURL       string          `json:"cover_url,omitempty"`
	Status         string          `json:"status,omitempty"`
}

// CategoryInput is the body of admin category create and update calls.
type CategoryInput struct {
	ParentID *int64 `json:"parent_id"`
	Name     string `json:"name"`
	Sort     int    `json:"sort"`
}

// Asset is a serialized physical instance of a SKU.
type Asset struct {
	ID         int64      `json:"id"`
	SKUID      int64      `json:"sku_id"`
	SN         string     `json:"sn"`
	Status     string     `json:"status"`
	HolderID   *int64     `json:"holder_user_id,omitempty"`
	InboundAt  *time.Time `json:"inbound_at,omitempty"`
	SKU        *SKU       `json:"sku,omitempty"`
	Department string     `json:"department,omitempty"`
}

// AssetInput is the body of admin asset create and update calls.
type AssetInput struct {
	SKUID  int64  `json:"sku_id"`
	SN     string `json:"sn"`
	Status string `json:"status,omitempty"`
}

// Delivery types.
const (
	DeliveryPickup  = "PICKUP"
	DeliveryExpress = "EXPRESS"
)

// Application statuses.
const (
	StatusLocked        = "LOCKED"
	StatusLeaderApprove = "LEADER_APPROVED"
	StatusAdminApprove  = "ADMIN_APPROVED"
	StatusReady         = "READY_OUTBOUND"
	StatusShipped       = "SHIPPED"
	StatusDone          = "DONE"
	StatusRejected      = "REJECTED"
)

// ExpressAddress is the shipping destination of an express application.
type ExpressAddress struct {
	ReceiverName  string `json:"receiver_name"`
	ReceiverPhone string `json:"receiver_phone"`
	Province      string `json:"province"`
	City          string `json:"city"`
	District      string `json:"district"`
	Detail        string `json:"detail"`
}

// ApplicationItem is one requested line.
type ApplicationItem struct {
	SKUID     int64           `json:"sku_id"`
	Quantity  int             `json:"quantity"`
	Brand     string          `json:"brand,omitempty"`
	Model     string          `json:"model,omitempty"`
	Spec      string          `json:"spec,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Application is an immutable snapshot of a submitted request.
type Application struct {
	ID             int64             `json:"id"`
	ApplicationNo  string            `json:"application_no"`
	ApplicantID    int64             `json:"applicant_user_id"`
	Status         string            `json:"status"`
	DeliveryType   string            `json:"delivery_type"`
	PickupCode     string            `json:"pickup_code,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	ExpressAddress *ExpressAddress   `json:"express_address,omitempty"`
	Items          []ApplicationItem `json:"items"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CreateApplicationRequest is the body of POST /applications.
type CreateApplicationRequest struct {
	DeliveryType   string                 `json:"delivery_type"`
	Reason         string                 `json:"reason,omitempty"`
	Items          []ApplicationItemInput `json:"items"`
	ExpressAddress *ExpressAddress        `json:"express_address,omitempty"`
}

// ApplicationItemInput is one line of a new application.
type ApplicationItemInput struct {
	SKUID    int64 `json:"sku_id"`
	Quantity int   `json:"quantity"`
}

// Approval actions.
const (
	ApprovalApprove = "APPROVE"
	ApprovalReject  = "REJECT"
)

// ApproveRequest is the body of POST /applications/:id/approve.
type ApproveRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment,omitempty"`
}

// AssetAssignment binds concrete assets to one requested SKU.
type AssetAssignment struct {
	SKUID    int64   `json:"sku_id"`
	AssetIDs []int64 `json:"asset_ids"`
}

// AssignAssetsRequest is the body of POST /applications/:id/assign-assets.
type AssignAssetsRequest struct {
	Assignments []AssetAssignment `json:"assignments"`
}

// PickupTicket is what an applicant shows at the warehouse counter.
type PickupTicket struct {
	ApplicationID int64      `json:"application_id"`
	PickupCode    string     `json:"pickup_code"`
	QRPayload     string     `json:"qr_payload"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// VerifyPickupRequest is the body of POST /pickup/verify. Exactly one of
// Code or QRPayload is expected.
type VerifyPickupRequest struct {
	Code      string `json:"code,omitempty"`
	QRPayload string `json:"qr_payload,omitempty"`
}

// ConfirmPickupRequest is the body of POST /outbound/confirm-pickup.
type ConfirmPickupRequest struct {
	ApplicationID int64  `json:"application_id"`
	PickupCode    string `json:"pickup_code,omitempty"`
}

// ShipRequest is the body of POST /outbound/ship.
type ShipRequest struct {
	ApplicationID int64  `json:"application_id"`
	Carrier       string `json:"carrier"`
	TrackingNo    string `json:"tracking_no"`
}

// OCR job statuses.
const (
	OCRPending   = "PENDING"
	OCRRunning   = "PROCESSING"
	OCRSucceeded = "SUCCEEDED"
	OCRFailed    = "FAILED"
	OCRConfirmed = "CONFIRMED"
)

// OCRJob is an inbound invoice recognition job.
type OCRJob struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	FileName        string         `json:"file_name,omitempty"`
	ExtractedFields map[string]any `json:"extracted_fields,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Done reports whether the job reached a terminal status.
func (j OCRJob) Done() bool {
	switch j.Status {
	case OCRSucceeded, OCRFailed, OCRConfirmed:
		return true
	}
	return false
}

// ConfirmOCRRequest is the body of POST /inbound/ocr-jobs/:id/confirm.
type ConfirmOCRRequest struct {
	CategoryID int64    `json:"category_id"`
	SKUID      *int64   `json:"sku_id,omitempty"`
	Brand      string   `json:"brand,omitempty"`
	Model      string   `json:"model,omitempty"`
	Spec       string   `json:"spec,omitempty"`
	SNs        []string `json:"sns"`
}

// ConfirmOCRResult is the data of an OCR confirmation.
type ConfirmOCRResult struct {
	SKU    SKU     `json:"sku"`
	Assets []Asset `json:"assets"`
}

// StockChange is the body of the sku-stock inbound, outbound and adjust calls.
type StockChange struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason,omitempty"`
}

// StockLevel is the stock of one SKU after a change.
type StockLevel struct {
	SKUID     int64 `json:"sku_id"`
	Total     int   `json:"total"`
	Available int   `json:"available"`
	Locked    int   `json:"locked"`
}

// StockFlow is one movement in a SKU's stock ledger.
type StockFlow struct {
	ID         int64     `json:"id"`
	SKUID      int64     `json:"sku_id"`
	Type       string    `json:"type"`
	Delta      int       `json:"delta"`
	Balance    int       `json:"balance"`
	Reason     string    `json:"reason,omitempty"`
	OperatorID int64     `json:"operator_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// RBACRole is a role row as managed by the RBAC admin pages.
type RBACRole struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RBACPermission is a permission row.
type RBACPermission struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RoleBinding lists the permissions granted to one role.
type RoleBinding struct {
	RoleCode        string   `json:"role_code"`
	PermissionCodes []string `json:"permission_codes"`
}

// TrendPoint is one bucket of the applications trend report.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DepartmentCost is one row of the cost-by-department report.
type DepartmentCost struct {
	Department string          `json:"department"`
	Cost       decimal.Decimal `json:"cost"`
}

// StatusCount is one slice of the asset status distribution.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ReportQuery bounds a report by date.
type ReportQuery struct {
	From        string
	To          string
	Granularity string
}

func (q ReportQuery) values() url.Values {
	v := url.Values{}
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	if q.Granularity != "" {
		v.Set("granularity", q.Granularity)
	}
	return v
}

// CopilotPlan is the structured query the backend derived from a question.
type CopilotPlan struct {
	Intent     string            `json:"intent"`
	Chart      string            `json:"chart,omitempty"`
	Dimensions []string          `json:"dimensions,omitempty"`
	Metrics    []string          `json:"metrics,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
}

// CopilotResult is the data of POST /copilot/query.
type CopilotResult struct {
	Plan    CopilotPlan `json:"plan"`
	Columns []string    `json:"columns"`
	Rows    [][]any     `json:"rows"`
	Summary string      `json:"summary,omitempty"`
}
