package directory

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rosterhub/roster/internal/domain"
	"github.com/rosterhub/roster/internal/pkg/httputil"
)

// Handler handles HTTP requests for the directory module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new directory handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers routes that need no authentication.
// The roster is readable by anyone.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/profiles", h.List)
}

// RegisterProtectedRoutes registers routes available to any
// authenticated caller.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/profiles", h.Create)
	r.Put("/profiles/{id}", h.Update)
}

// RegisterAdminRoutes registers routes that require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Delete("/profiles/{id}", h.Delete)
}

// ProfileRequest is the full record shape for create and update. Both
// operations carry the complete desired state; update is a total
// replace, never a partial merge.
type ProfileRequest struct {
	PhotoURL       *string      `json:"photoUrl"`
	SignatureURL   *string      `json:"signatureUrl"`
	MilitaryID     *string      `json:"militaryId"`
	Rank           *string      `json:"rank"`
	FirstName      string       `json:"firstName" validate:"required,min=1,max=255"`
	LastName       string       `json:"lastName" validate:"required,min=1,max=255"`
	Nickname       *string      `json:"nickname"`
	Corps          *string      `json:"corps"`
	Position       *string      `json:"position"`
	Unit           *string      `json:"unit"`
	BirthDate      *domain.Date `json:"birthDate"`
	RetirementYear *int         `json:"retirementYear"`
	Phone1         *string      `json:"phone1"`
	Phone2         *string      `json:"phone2"`
	Email          *string      `json:"email" validate:"omitempty,email"`
	LineID         *string      `json:"lineId"`
	Status         *string      `json:"status"`
	ChildrenMale   *int         `json:"childrenMale" validate:"omitempty,gte=0"`
	ChildrenFemale *int         `json:"childrenFemale" validate:"omitempty,gte=0"`
	HouseNo        *string      `json:"houseNo"`
	Soi            *string      `json:"soi"`
	Road           *string      `json:"road"`
	Subdistrict    *string      `json:"subdistrict"`
	District       *string      `json:"district"`
	Province       *string      `json:"province"`
	ZipCode        *string      `json:"zipCode"`
}

// ToDomain converts the request to a domain model.
func (r *ProfileRequest) ToDomain() *domain.Profile {
	birthDate := r.BirthDate
	if birthDate != nil && birthDate.IsZero() {
		birthDate = nil
	}

	p := &domain.Profile{
		PhotoPath:      r.PhotoURL,
		SignaturePath:  r.SignatureURL,
		MilitaryID:     r.MilitaryID,
		Rank:           r.Rank,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Nickname:       r.Nickname,
		Corps:          r.Corps,
		Position:       r.Position,
		Unit:           r.Unit,
		BirthDate:      birthDate,
		RetirementYear: r.RetirementYear,
		Phone1:         r.Phone1,
		Phone2:         r.Phone2,
		Email:          r.Email,
		LineID:         r.LineID,
		Status:         r.Status,
		HouseNo:        r.HouseNo,
		Soi:            r.Soi,
		Road:           r.Road,
		Subdistrict:    r.Subdistrict,
		District:       r.District,
		Province:       r.Province,
		ZipCode:        r.ZipCode,
	}
	if r.ChildrenMale != nil {
		p.ChildrenMale = *r.ChildrenMale
	}
	if r.ChildrenFemale != nil {
		p.ChildrenFemale = *r.ChildrenFemale
	}
	return p
}

// List handles GET /profiles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, profiles)
}

// Create handles POST /profiles.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	profile := req.ToDomain()
	if err := h.service.Create(r.Context(), profile); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, profile)
}

// Update handles PUT /profiles/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	profile := req.ToDomain()
	if err := h.service.Update(r.Context(), id, profile); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, profile)
}

// Delete handles DELETE /profiles/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func profileID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrProfileNotFound, Status: http.StatusNotFound},
	})
}
