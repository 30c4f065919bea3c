package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/ZaguanLabs/appshelf"
	"github.com/ZaguanLabs/appshelf/internal/logging"
)

// translateRequest is shared by the three translate endpoints; each reads
// the field it needs.
type translateRequest struct {
	Text       string   `json:"text"`
	Texts      []string `json:"texts"`
	HTML       string   `json:"html"`
	TargetLang string   `json:"target_lang"`
	Locale     string   `json:"locale"`
	SourceLang string   `json:"source_lang"`
}

type resultJSON struct {
	Text         string `json:"text"`
	UsedFallback bool   `json:"used_fallback"`
	Cached       bool   `json:"cached"`
}

type translateResponse struct {
	resultJSON
	TargetLang appshelf.Language `json:"target_lang"`
}

type bulkResponse struct {
	Texts        []string          `json:"texts"`
	Results      []resultJSON      `json:"results"`
	UsedFallback bool              `json:"used_fallback"`
	TargetLang   appshelf.Language `json:"target_lang"`
}

type htmlResponse struct {
	HTML         string            `json:"html"`
	TotalNodes   int               `json:"total_nodes"`
	Translated   int               `json:"translated"`
	Cached       int               `json:"cached"`
	Fallback     int               `json:"fallback"`
	UsedFallback bool              `json:"used_fallback"`
	TargetLang   appshelf.Language `json:"target_lang"`
}

type languageResponse struct {
	Locale   string            `json:"locale"`
	Language appshelf.Language `json:"language"`
	Name     string            `json:"name"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	req, target, source, ok := s.decodeTranslate(w, r)
	if !ok {
		return
	}

	res := s.translator.Translate(r.Context(), req.Text, target, source)
	s.logTranslate("single", target, 1, res.UsedFallback)

	writeJSON(w, http.StatusOK, translateResponse{
		resultJSON: toResultJSON(res),
		TargetLang: target,
	})
}

func (s *Server) handleTranslateBulk(w http.ResponseWriter, r *http.Request) {
	req, target, source, ok := s.decodeTranslate(w, r)
	if !ok {
		return
	}
	if req.Texts == nil {
		writeError(w, http.StatusBadRequest, "texts is required")
		return
	}

	results := s.translator.TranslateBulk(r.Context(), req.Texts, target, source)
	fallback := appshelf.AnyFallback(results)
	s.logTranslate("bulk", target, len(req.Texts), fallback)

	out := bulkResponse{
		Texts:        appshelf.Texts(results),
		Results:      make([]resultJSON, len(results)),
		UsedFallback: fallback,
		TargetLang:   target,
	}
	for i, res := range results {
		out.Results[i] = toResultJSON(res)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTranslateHTML(w http.ResponseWriter, r *http.Request) {
	req, target, _, ok := s.decodeTranslate(w, r)
	if !ok {
		return
	}

	processed, err := s.translator.TranslateHTML(r.Context(), req.HTML, target)
	if err != nil {
		s.logger.WithField("action", "translate_html").WithError(err).Warn("html translation failed")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logTranslate("html", target, processed.TotalNodes, processed.FallbackCount > 0)

	writeJSON(w, http.StatusOK, htmlResponse{
		HTML:         processed.Content,
		TotalNodes:   processed.TotalNodes,
		Translated:   processed.TranslatedCount,
		Cached:       processed.CachedCount,
		Fallback:     processed.FallbackCount,
		UsedFallback: processed.FallbackCount > 0,
		TargetLang:   target,
	})
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")

	var lang appshelf.Language
	switch {
	case locale != "":
		lang = appshelf.LanguageFromLocale(locale)
	case r.Header.Get("Accept-Language") != "":
		lang = appshelf.LanguageFromAcceptLanguage(r.Header.Get("Accept-Language"))
	default:
		lang = s.defaultLang
	}

	writeJSON(w, http.StatusOK, languageResponse{
		Locale:   locale,
		Language: lang,
		Name:     lang.Name(),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := appshelf.SupportedLanguages()
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })

	out := make([]languageResponse, len(langs))
	for i, l := range langs {
		out[i] = languageResponse{Language: l, Name: l.Name()}
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeTranslate parses the body and resolves the languages. The target is
// target_lang if set, else derived from locale, else from Accept-Language,
// else the configured default.
func (s *Server) decodeTranslate(w http.ResponseWriter, r *http.Request) (translateRequest, appshelf.Language, appshelf.Language, bool) {
	var req translateRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, "", "", false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return req, "", "", false
	}

	var target appshelf.Language
	switch {
	case req.TargetLang != "":
		lang, err := appshelf.ParseLanguage(req.TargetLang)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return req, "", "", false
		}
		target = lang
	case req.Locale != "":
		target = appshelf.LanguageFromLocale(req.Locale)
	case r.Header.Get("Accept-Language") != "":
		target = appshelf.LanguageFromAcceptLanguage(r.Header.Get("Accept-Language"))
	default:
		target = s.defaultLang
	}

	var source appshelf.Language
	if req.SourceLang != "" {
		lang, err := appshelf.ParseLanguage(req.SourceLang)
		if err != nil {
			writeError(w, http.StatusBadRequest, "source_lang: "+err.Error())
			return req, "", "", false
		}
		source = lang
	}

	return req, target, source, true
}

func (s *Server) logTranslate(endpoint string, target appshelf.Language, texts int, fallback bool) {
	s.logger.WithFields(logging.TranslateFields(endpoint, string(target), texts, fallback)).Debug("translated")
}

func toResultJSON(res appshelf.Result) resultJSON {
	return resultJSON{Text: res.Text, UsedFallback: res.UsedFallback, Cached: res.Cached}
}
