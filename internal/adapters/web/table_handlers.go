package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

const maxTablePageSize = 1000

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.Store.ListCaptureTables(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list tables")
		return
	}
	respond(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) handleTableRows(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !domain.IsValidTableName(name) {
		respondError(w, http.StatusBadRequest, "invalid table name")
		return
	}

	limit := queryInt(r, "limit", 100)
	if limit > maxTablePageSize {
		limit = maxTablePageSize
	}
	offset := queryInt(r, "offset", 0)

	rows, err := s.Store.TableRowsPage(r.Context(), name, limit, offset)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			respondError(w, http.StatusNotFound, "table not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not read table")
		return
	}

	total, err := s.Store.CountRows(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not count rows")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"table":  name,
		"rows":   rows,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
