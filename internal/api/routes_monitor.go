package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/simlink-project/simlink/internal/catalog"
	"github.com/simlink-project/simlink/internal/protocol"
)

const maxHistoryLimit = 500

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "simlink",
		"version": s.version,
	})
}

// handleStatus returns the circuit snapshot.
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.circuit.Status())
}

func (s *Server) handleCatalog(c *gin.Context) {
	entries := s.circuit.Catalog().Entries()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(entries),
		"messages": entries,
	})
}

type fieldInfo struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Block []fieldInfo `json:"block,omitempty"`
}

func describeFields(fields []protocol.Field) []fieldInfo {
	out := make([]fieldInfo, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldInfo{Name: f.Name, Type: f.Type.String(), Block: describeFields(f.Block)})
	}
	return out
}

// handleCatalogEntry returns one catalog entry plus its field layout when
// the client knows it.
func (s *Server) handleCatalogEntry(c *gin.Context) {
	name := c.Param("name")
	entry, err := s.circuit.Catalog().Lookup(name)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownMessage) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown message", "name": name})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"name":      entry.Name,
		"frequency": entry.ID.Frequency,
		"number":    entry.ID.Number,
		"wire":      protocol.FormatHex(protocol.EncodeMessageID(entry.ID)),
		"trusted":   entry.Trusted,
		"zerocoded": entry.Zerocoded,
	}
	if schema, ok := protocol.LookupSchema(entry.Name); ok {
		resp["fields"] = describeFields(schema.Fields)
	}
	c.JSON(http.StatusOK, resp)
}

// handleHistory returns recent transcript entries, oldest first.
func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transcript disabled"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("API: failed to read transcript")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read transcript"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}
