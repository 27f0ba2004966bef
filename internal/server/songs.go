package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"lyrics-viewer/internal/song"
)

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.deps.Songs.GetAllSongs(r.Context())
	if err != nil {
		fail(w, r, "Failed to fetch songs", err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required", nil)
		return
	}
	songs, err := s.deps.Songs.SearchSongs(r.Context(), query)
	if err != nil {
		fail(w, r, "Failed to search songs", err)
		return
	}
	if songs == nil {
		songs = []*song.Song{}
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	sng, err := s.deps.Songs.GetSong(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, "Failed to fetch song", err)
		return
	}
	writeJSON(w, http.StatusOK, sng)
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var req song.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	sng, err := s.deps.Songs.CreateSong(r.Context(), req)
	if err != nil {
		fail(w, r, "Failed to create song", err)
		return
	}
	writeJSON(w, http.StatusCreated, sng)
}

func (s *Server) handleImportSong(w http.ResponseWriter, r *http.Request) {
	if s.deps.Importer == nil {
		writeError(w, http.StatusServiceUnavailable, "Lyrics import is not configured", nil)
		return
	}
	var req song.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	sng, err := s.deps.Importer.Import(r.Context(), req)
	if err != nil {
		fail(w, r, "Failed to import song", err)
		return
	}
	writeJSON(w, http.StatusCreated, sng)
}

func (s *Server) handleListTranslations(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.deps.Songs.GetSong(r.Context(), id); err != nil {
		fail(w, r, "Failed to fetch translations", err)
		return
	}
	translations, err := s.deps.Songs.GetTranslationsForSong(r.Context(), id)
	if err != nil {
		fail(w, r, "Failed to fetch translations", err)
		return
	}
	if translations == nil {
		translations = []*song.Translation{}
	}
	writeJSON(w, http.StatusOK, translations)
}
