package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/server/models"
	"github.com/lexify-app/lexify-server/internal/server/services"
)

// --- auth ---

type signInRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type signInResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   string(u.Role),
		Status: string(u.Status),
	}
}

// handleSignIn exchanges a verified email for an account and a token. The
// upstream identity provider has already checked the email; this endpoint is
// called from its callback.
func (api *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := readJSON(r, &req); err != nil {
		api.writeError(w, r, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	user, token, err := api.userSvc.SignIn(r.Context(), req.Email, req.Name)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{Token: token, User: toUserDTO(user)})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

func (api *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := readJSON(r, &req); err != nil {
		api.writeError(w, r, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	token, err := api.userSvc.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, adminLoginResponse{Token: token})
}

// --- words ---

type saveWordRequest struct {
	Word      string  `json:"word"`
	Meaning   string  `json:"meaning"`
	SourceURL string  `json:"sourceUrl"`
	Position  string  `json:"position,omitempty"`
	Context   *string `json:"context,omitempty"`
}

type saveWordResponse struct {
	Word             senseDTO     `json:"word"`
	Encounter        encounterDTO `json:"encounter"`
	CreatedWord      bool         `json:"createdWord"`
	CreatedEncounter bool         `json:"createdEncounter"`
}

type senseDTO struct {
	ID      string    `json:"id"`
	Word    string    `json:"word"`
	Meaning string    `json:"meaning"`
	SavedAt time.Time `json:"savedAt"`
}

type encounterDTO struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"sourceUrl"`
	Position  string    `json:"position,omitempty"`
	Context   string    `json:"context,omitempty"`
	SeenAt    time.Time `json:"seenAt"`
}

func toSenseDTO(s *models.Sense) senseDTO {
	return senseDTO{ID: s.ID, Word: s.Word, Meaning: s.Meaning, SavedAt: s.CreatedAt}
}

func toEncounterDTO(e *models.Encounter) encounterDTO {
	return encounterDTO{
		ID:        e.ID,
		SourceURL: e.SourceURL,
		Position:  e.Position,
		Context:   e.Context,
		SeenAt:    e.CreatedAt,
	}
}

func (api *API) handleSaveWord(w http.ResponseWriter, r *http.Request) {
	var req saveWordRequest
	if err := readJSON(r, &req); err != nil {
		api.writeError(w, r, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	user := UserFromContext(r.Context())

	res, err := api.history.SaveOccurrence(r.Context(), user.ID, services.Occurrence{
		Word:      req.Word,
		Meaning:   req.Meaning,
		SourceURL: req.SourceURL,
		Position:  req.Position,
		Context:   req.Context,
	})
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.CreatedEncounter {
		status = http.StatusCreated
	}

	writeJSON(w, status, saveWordResponse{
		Word:             toSenseDTO(res.Sense),
		Encounter:        toEncounterDTO(res.Encounter),
		CreatedWord:      res.CreatedSense,
		CreatedEncounter: res.CreatedEncounter,
	})
}

type historyEntryDTO struct {
	senseDTO
	Encounters []encounterDTO `json:"encounters"`
}

type historyResponse struct {
	Words []historyEntryDTO `json:"words"`
}

func (api *API) handleGetWords(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	entries, err := api.history.UserHistory(r.Context(), user.ID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	resp := historyResponse{Words: make([]historyEntryDTO, 0, len(entries))}
	for _, entry := range entries {
		dto := historyEntryDTO{
			senseDTO:   toSenseDTO(&entry.Sense),
			Encounters: make([]encounterDTO, 0, len(entry.Encounters)),
		}
		for i := range entry.Encounters {
			dto.Encounters = append(dto.Encounters, toEncounterDTO(&entry.Encounters[i]))
		}
		resp.Words = append(resp.Words, dto)
	}

	writeJSON(w, http.StatusOK, resp)
}

type exportResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (api *API) handleExport(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	url, err := api.export.Export(r.Context(), user.ID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, exportResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	})
}

// --- preferences ---

type preferenceDTO struct {
	TargetLanguage string `json:"targetLanguage"`
	AutoSave       bool   `json:"autoSave"`
	ShowPhonetics  bool   `json:"showPhonetics"`
}

func toPreferenceDTO(p *models.Preference) preferenceDTO {
	return preferenceDTO{
		TargetLanguage: p.TargetLanguage,
		AutoSave:       p.AutoSave,
		ShowPhonetics:  p.ShowPhonetics,
	}
}

func (api *API) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	p, err := api.preferences.Get(r.Context(), user.ID)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPreferenceDTO(p))
}

func (api *API) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferenceDTO
	if err := readJSON(r, &req); err != nil {
		api.writeError(w, r, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	user := UserFromContext(r.Context())

	p, err := api.preferences.Update(r.Context(), user.ID, services.PreferenceUpdate{
		TargetLanguage: req.TargetLanguage,
		AutoSave:       req.AutoSave,
		ShowPhonetics:  req.ShowPhonetics,
	})
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPreferenceDTO(p))
}

// --- admin ---

type adminStatsResponse struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalWords    int64 `json:"totalWords"`
	DailyActive   int64 `json:"dailyActive"`
	MonthlyActive int64 `json:"monthlyActive"`
}

func (api *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := api.admin.Overview(r.Context())
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, adminStatsResponse{
		TotalUsers:    stats.TotalUsers,
		TotalWords:    stats.TotalSenses,
		DailyActive:   stats.DailyActive,
		MonthlyActive: stats.MonthlyActive,
	})
}

type adminUserDTO struct {
	userDTO
	WordCount int64 `json:"wordCount"`
}

type adminUsersResponse struct {
	Users []adminUserDTO `json:"users"`
}

func (api *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	list, err := api.admin.Users(r.Context())
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	resp := adminUsersResponse{Users: make([]adminUserDTO, 0, len(list))}
	for _, u := range list {
		resp.Users = append(resp.Users, adminUserDTO{
			userDTO:   toUserDTO(&u.User),
			WordCount: u.SenseCount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type adminUserDetailResponse struct {
	User        userDTO    `json:"user"`
	RecentWords []senseDTO `json:"recentWords"`
}

func (api *API) handleAdminUserDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := api.admin.UserDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	resp := adminUserDetailResponse{
		User:        toUserDTO(detail.User),
		RecentWords: make([]senseDTO, 0, len(detail.RecentSenses)),
	}
	for _, s := range detail.RecentSenses {
		resp.RecentWords = append(resp.RecentWords, toSenseDTO(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

type suspendRequest struct {
	Suspended bool `json:"suspended"`
}

func (api *API) handleAdminSuspend(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if err := readJSON(r, &req); err != nil {
		api.writeError(w, r, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	user, err := api.userSvc.SetSuspended(r.Context(), r.PathValue("id"), req.Suspended)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

type topWordDTO struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

type topWordsResponse struct {
	Words []topWordDTO `json:"words"`
}

func (api *API) handleAdminTopWords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.writeError(w, r, fmt.Errorf("%w: limit must be an integer", common.ErrValidation))
			return
		}
		limit = parsed
	}

	top, err := api.admin.TopWords(r.Context(), limit)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	resp := topWordsResponse{Words: make([]topWordDTO, 0, len(top))}
	for _, wc := range top {
		resp.Words = append(resp.Words, topWordDTO{Word: wc.Word, Count: wc.Count})
	}

	writeJSON(w, http.StatusOK, resp)
}
