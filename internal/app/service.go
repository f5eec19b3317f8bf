package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"orbit/api/internal/ai"
	"orbit/api/internal/archive"
	"orbit/api/internal/config"
	"orbit/api/internal/export"
	"orbit/api/internal/graph"
	"orbit/api/internal/projection"
	"orbit/api/internal/search"
	"orbit/api/internal/session"
	"orbit/api/internal/store"
	"orbit/api/internal/util"
	"orbit/api/internal/websearch"
)

// resetConfirmPhrase must be echoed back by the client before a bulk reset
// is issued. The reset is irreversible.
const resetConfirmPhrase = "ERASE ALL KNOWLEDGE"

type dataStore interface {
	ListRecords(context.Context) ([]store.KnowledgeRecord, error)
	GetRecord(context.Context, string) (store.KnowledgeRecord, error)
	InsertRecord(context.Context, store.KnowledgeRecord) error
	DeleteRecord(context.Context, string) error
	DeleteAll(context.Context) error
	ListMemos(context.Context) ([]store.Memo, error)
	InsertMemo(context.Context, store.Memo) error
	DeleteMemo(context.Context, string) error
	Ping(ctx context.Context) error
}

type webSearcher interface {
	Configured() bool
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

type corpusArchive interface {
	RecordCaptured(store.KnowledgeRecord) (archive.CommitInfo, error)
	RecordDeleted(recordID, word string) (archive.CommitInfo, error)
	Reset() (archive.CommitInfo, error)
	History(limit int) ([]archive.CommitInfo, error)
}

type cardExporter interface {
	ExportCard(store.KnowledgeRecord) (*export.Result, error)
}

// Service wires the capture flow, the projection controller and the
// supporting subsystems. Any of ai/webSearch/searchSvc/archiveSvc/exporter
// may be nil or degraded; the affected operation reports unavailable and
// everything else keeps working.
type Service struct {
	cfg        config.Config
	store      dataStore
	controller *projection.Controller
	graph      *graph.Graph
	sessions   *session.Service
	ai         ai.Completer
	webSearch  webSearcher
	searchSvc  *search.Service
	archiveSvc corpusArchive
	exporter   cardExporter
	activity   *ActivityLog

	// Concrete clients kept alongside the call interfaces so runtime
	// settings updates can swap their credentials.
	aiClient        *ai.Client
	webSearchClient *websearch.Client
	settingsMirror  *session.RedisStore

	// captureMu is the server-side twin of the disabled capture button: one
	// capture in flight at a time, enforced per process, not per store.
	captureMu sync.Mutex
	capturing bool
}

func New(
	cfg config.Config,
	dataStore dataStore,
	controller *projection.Controller,
	liveGraph *graph.Graph,
	sessions *session.Service,
	aiClient *ai.Client,
	webSearch *websearch.Client,
	searchSvc *search.Service,
	archiveSvc *archive.Service,
	exporter *export.Service,
	settingsMirror *session.RedisStore,
) *Service {
	s := &Service{
		cfg:             cfg,
		store:           dataStore,
		controller:      controller,
		graph:           liveGraph,
		sessions:        sessions,
		searchSvc:       searchSvc,
		aiClient:        aiClient,
		webSearchClient: webSearch,
		settingsMirror:  settingsMirror,
		activity:        NewActivityLog(),
	}
	// Assign through the interface fields only when the concrete value is
	// present, so a disabled subsystem stays a nil interface.
	if aiClient != nil {
		s.ai = aiClient
	}
	if webSearch != nil {
		s.webSearch = webSearch
	}
	if archiveSvc != nil {
		s.archiveSvc = archiveSvc
	}
	if exporter != nil {
		s.exporter = exporter
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// aiReady reports whether the analysis surface can take requests. The
// concrete client may be present but unconfigured until a key arrives via
// env or a settings update.
func (s *Service) aiReady() bool {
	if s.aiClient != nil {
		return s.aiClient.Configured()
	}
	return s.ai != nil
}

func (s *Service) Activity() []ActivityEntry {
	return s.activity.Recent()
}

func (s *Service) logf(kind, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	log.Printf("%s: %s", kind, text)
	s.activity.Add(kind, text)
}

// Capture analyzes a term, infers its connections against the pre-write
// cache, and writes the new record. The projection picks the record up from
// the store's change stream; Capture only arms the one-shot focus.
func (s *Service) Capture(ctx context.Context, word string) (store.KnowledgeRecord, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return store.KnowledgeRecord{}, domainError(http.StatusBadRequest, "EMPTY_WORD", "A term is required", nil)
	}
	if !s.aiReady() {
		return store.KnowledgeRecord{}, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "Analysis service not configured", nil)
	}

	if !s.beginCapture() {
		return store.KnowledgeRecord{}, domainError(http.StatusConflict, "CAPTURE_IN_FLIGHT", "A capture is already running", nil)
	}
	defer s.endCapture()

	s.logf("ai", "analyzing knowledge for %q", word)

	prior := s.controller.Snapshot().AllRecords

	searchContext := ""
	if s.webSearch != nil && s.webSearch.Configured() {
		results, err := s.webSearch.Search(ctx, word)
		if err != nil {
			s.logf("error", "web search for %q failed, continuing without context: %v", word, err)
		} else {
			searchContext = websearch.ContextBlock(results, 3)
		}
	}

	analysis, err := ai.Analyze(ctx, s.ai, word, searchContext)
	if err != nil {
		s.logf("error", "analysis for %q failed: %v", word, err)
		return store.KnowledgeRecord{}, domainError(http.StatusBadGateway, "ANALYSIS_FAILED", "Error!", err.Error())
	}

	connections := ai.InferConnections(ctx, s.ai, word, prior)

	rec := store.KnowledgeRecord{
		ID:          util.NewID("kb"),
		Word:        analysis.Word,
		Category:    analysis.Category,
		Summary:     analysis.Summary,
		Analogy:     analysis.Analogy,
		KeyPlayers:  toStorePlayers(analysis.KeyPlayers),
		Connections: connections,
	}

	s.controller.SetPendingFocus(rec.ID)
	if err := s.store.InsertRecord(ctx, rec); err != nil {
		s.controller.SetPendingFocus("")
		s.logf("error", "save for %q failed: %v", word, err)
		return store.KnowledgeRecord{}, domainError(http.StatusInternalServerError, "SAVE_FAILED", "Error!", err.Error())
	}

	if s.archiveSvc != nil {
		if _, err := s.archiveSvc.RecordCaptured(rec); err != nil {
			s.logf("error", "archive commit for %q failed: %v", word, err)
		}
	}
	if s.searchSvc != nil {
		s.searchSvc.IndexRecord(search.RecordDoc{
			ID:       rec.ID,
			Word:     rec.Word,
			Category: rec.Category,
			Summary:  rec.Summary,
			Analogy:  rec.Analogy,
		})
	}

	s.logf("system", "knowledge captured: %q (%d connections)", rec.Word, len(connections))
	return rec, nil
}

func (s *Service) beginCapture() bool {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	if s.capturing {
		return false
	}
	s.capturing = true
	return true
}

func (s *Service) endCapture() {
	s.captureMu.Lock()
	s.capturing = false
	s.captureMu.Unlock()
}

// CaptureInFlight reports whether the trigger control should be disabled.
func (s *Service) CaptureInFlight() bool {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	return s.capturing
}

// DeleteRecord removes one record. confirmed must be true: destructive
// actions require an explicit client confirmation. The view reconciles on
// the next snapshot event, never directly here.
func (s *Service) DeleteRecord(ctx context.Context, recordID string, confirmed bool) error {
	if !confirmed {
		return domainError(http.StatusBadRequest, "CONFIRM_REQUIRED", "Deletion requires confirmation", nil)
	}

	rec, err := s.store.GetRecord(ctx, recordID)
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	}
	if err != nil {
		return domainError(http.StatusInternalServerError, "DELETE_FAILED", "Error!", err.Error())
	}

	if err := s.store.DeleteRecord(ctx, recordID); err != nil {
		s.logf("error", "delete %s failed: %v", recordID, err)
		return domainError(http.StatusInternalServerError, "DELETE_FAILED", "Error!", err.Error())
	}

	if s.archiveSvc != nil {
		if _, err := s.archiveSvc.RecordDeleted(recordID, rec.Word); err != nil {
			s.logf("error", "archive removal for %s failed: %v", recordID, err)
		}
	}
	if s.searchSvc != nil {
		s.searchSvc.DeleteRecord(recordID)
	}

	s.logf("system", "record removed: %q", rec.Word)
	return nil
}

// ResetAll deletes every record and memo in one batch. The confirmation
// phrase is mandatory; when a reset passphrase hash is configured, the
// passphrase must verify too.
func (s *Service) ResetAll(ctx context.Context, confirmPhrase, passphrase string) error {
	if confirmPhrase != resetConfirmPhrase {
		return domainError(http.StatusBadRequest, "CONFIRM_REQUIRED",
			fmt.Sprintf("Reset requires the confirmation phrase %q", resetConfirmPhrase), nil)
	}
	if s.cfg.ResetPassphraseHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.ResetPassphraseHash), []byte(passphrase)); err != nil {
			return domainError(http.StatusForbidden, "BAD_PASSPHRASE", "Reset passphrase rejected", nil)
		}
	}

	if err := s.store.DeleteAll(ctx); err != nil {
		s.logf("error", "bulk reset failed: %v", err)
		return domainError(http.StatusInternalServerError, "RESET_FAILED", "Error!", err.Error())
	}

	if s.archiveSvc != nil {
		if _, err := s.archiveSvc.Reset(); err != nil {
			s.logf("error", "archive reset failed: %v", err)
		}
	}
	if s.searchSvc != nil {
		s.searchSvc.Reset()
	}

	s.logf("system", "knowledge base reset")
	return nil
}

// Settings is the runtime-updatable credential surface. Values are applied
// in memory and, when a mirror store is available, persisted so they survive
// a restart.
type Settings struct {
	GeminiAPIKey   string `json:"geminiApiKey"`
	GeminiModel    string `json:"geminiModel,omitempty"`
	SearchAPIKey   string `json:"searchApiKey,omitempty"`
	SearchEngineID string `json:"searchEngineId,omitempty"`
}

// UpdateSettings swaps service credentials without a restart. An empty
// Gemini key disables capture and chat until a key is provided again.
func (s *Service) UpdateSettings(ctx context.Context, in Settings) error {
	if s.aiClient != nil {
		s.aiClient.SetCredentials(in.GeminiAPIKey, in.GeminiModel)
	}
	if s.webSearchClient != nil {
		s.webSearchClient.SetCredentials(in.SearchAPIKey, in.SearchEngineID)
	}

	if s.settingsMirror != nil {
		payload, err := json.Marshal(in)
		if err == nil {
			err = s.settingsMirror.SaveSettings(ctx, payload)
		}
		if err != nil {
			s.logf("error", "settings mirror write failed: %v", err)
		}
	}

	s.logf("system", "settings updated (analysis %s, search grounding %s)",
		onOff(s.aiReady()), onOff(s.webSearch != nil && s.webSearch.Configured()))
	return nil
}

// RestoreSettings applies the mirrored settings from a previous run.
// Mirrored values win over env config only when present.
func (s *Service) RestoreSettings(ctx context.Context) {
	if s.settingsMirror == nil {
		return
	}
	payload, err := s.settingsMirror.LoadSettings(ctx)
	if errors.Is(err, session.ErrNotFound) {
		return
	}
	if err != nil {
		s.logf("error", "settings mirror read failed: %v", err)
		return
	}
	var in Settings
	if err := json.Unmarshal(payload, &in); err != nil {
		s.logf("error", "settings mirror payload invalid: %v", err)
		return
	}
	if s.aiClient != nil && in.GeminiAPIKey != "" {
		s.aiClient.SetCredentials(in.GeminiAPIKey, in.GeminiModel)
	}
	if s.webSearchClient != nil && in.SearchAPIKey != "" && in.SearchEngineID != "" {
		s.webSearchClient.SetCredentials(in.SearchAPIKey, in.SearchEngineID)
	}
	s.logf("system", "settings restored from mirror")
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

// Chat answers a question using the most recently captured items as context.
func (s *Service) Chat(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domainError(http.StatusBadRequest, "EMPTY_QUESTION", "A question is required", nil)
	}
	if !s.aiReady() {
		return "", domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "Analysis service not configured", nil)
	}

	answer, err := ai.AnswerQuestion(ctx, s.ai, question, s.controller.Snapshot().AllRecords)
	if err != nil {
		s.logf("error", "chat failed: %v", err)
		return "", domainError(http.StatusBadGateway, "CHAT_FAILED", "Error!", err.Error())
	}
	return answer, nil
}

// DeepDive generates the long-form briefing for one record. Fired only on
// explicit request to bound external-service cost.
func (s *Service) DeepDive(ctx context.Context, recordID string) (string, error) {
	if !s.aiReady() {
		return "", domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "Analysis service not configured", nil)
	}
	rec, ok := s.controller.RecordByID(recordID)
	if !ok {
		return "", domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	}

	s.logf("ai", "deep dive requested for %q", rec.Word)
	text, err := ai.DeepDive(ctx, s.ai, rec)
	if err != nil {
		s.logf("error", "deep dive for %q failed: %v", rec.Word, err)
		return "", domainError(http.StatusBadGateway, "DEEP_DIVE_FAILED", "Error!", err.Error())
	}
	return text, nil
}

// AddMemo appends to the scratchpad.
func (s *Service) AddMemo(ctx context.Context, text string) (store.Memo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Memo{}, domainError(http.StatusBadRequest, "EMPTY_MEMO", "Memo text is required", nil)
	}
	memo := store.Memo{ID: util.NewID("memo"), Text: text}
	if err := s.store.InsertMemo(ctx, memo); err != nil {
		return store.Memo{}, domainError(http.StatusInternalServerError, "MEMO_FAILED", "Error!", err.Error())
	}
	return memo, nil
}

func (s *Service) ListMemos(ctx context.Context) ([]store.Memo, error) {
	memos, err := s.store.ListMemos(ctx)
	if err != nil {
		return nil, domainError(http.StatusInternalServerError, "MEMO_FAILED", "Error!", err.Error())
	}
	return memos, nil
}

func (s *Service) DeleteMemo(ctx context.Context, memoID string) error {
	err := s.store.DeleteMemo(ctx, memoID)
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Memo not found", nil)
	}
	if err != nil {
		return domainError(http.StatusInternalServerError, "MEMO_FAILED", "Error!", err.Error())
	}
	return nil
}

// SearchCorpus runs a full-text query over captured records.
func (s *Service) SearchCorpus(q search.Query) search.Response {
	if s.searchSvc == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.searchSvc.Search(q)
}

// ExportCard renders one record as a PDF.
func (s *Service) ExportCard(ctx context.Context, recordID string) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export not configured", nil)
	}
	rec, err := s.store.GetRecord(ctx, recordID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	}
	if err != nil {
		return nil, domainError(http.StatusInternalServerError, "EXPORT_FAILED", "Error!", err.Error())
	}
	result, err := s.exporter.ExportCard(rec)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF renderer not installed", nil)
		}
		s.logf("error", "export %s failed: %v", recordID, err)
		return nil, domainError(http.StatusInternalServerError, "EXPORT_FAILED", "Error!", err.Error())
	}
	return result, nil
}

// ArchiveHistory lists recent corpus archive commits.
func (s *Service) ArchiveHistory(limit int) ([]archive.CommitInfo, error) {
	if s.archiveSvc == nil {
		return nil, nil
	}
	history, err := s.archiveSvc.History(limit)
	if err != nil {
		return nil, domainError(http.StatusInternalServerError, "ARCHIVE_FAILED", "Error!", err.Error())
	}
	return history, nil
}

// ValidateSession checks a bearer token against the session service.
func (s *Service) ValidateSession(ctx context.Context, token string) (session.Session, error) {
	return s.sessions.Validate(ctx, token)
}

// AnonymousSession mints a client session token.
func (s *Service) AnonymousSession(ctx context.Context) (string, error) {
	token, err := s.sessions.IssueAnonymous(ctx)
	if err != nil {
		return "", domainError(http.StatusInternalServerError, "SESSION_FAILED", "Error!", err.Error())
	}
	return token, nil
}

// Projection access, delegated to the controller and the live graph.

func (s *Service) ProjectionSnapshot() projection.Snapshot {
	return s.controller.Snapshot()
}

func (s *Service) GraphSnapshot() graph.Snapshot {
	return s.graph.Snapshot()
}

func (s *Service) SetFilter(category string) {
	s.controller.SetFilter(category)
	if category == "" {
		s.logf("system", "category filter cleared")
	} else {
		s.logf("system", "category filter set: %q", category)
	}
}

func (s *Service) EntityDetail(id string) (projection.EntityDetail, bool) {
	return s.controller.EntityDetail(id)
}

func (s *Service) SetNodePosition(id string, x, y float64) bool {
	return s.graph.SetPosition(id, x, y)
}

func (s *Service) SyncState() projection.State {
	return s.controller.State()
}

func (s *Service) SubscribeToUpdates(fn projection.Listener) {
	s.controller.Subscribe(fn)
}

func toStorePlayers(players []ai.KeyPlayer) []store.KeyPlayer {
	if len(players) == 0 {
		return nil
	}
	out := make([]store.KeyPlayer, 0, len(players))
	for _, p := range players {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		out = append(out, store.KeyPlayer{Name: p.Name, Role: p.Role})
	}
	return out
}
