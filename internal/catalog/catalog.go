// Package catalog maps message names to their frequency-classed ids and back.
// The table is read once from a line-oriented template, either the one
// embedded in the binary or a file supplied through configuration, and is
// immutable afterwards.
package catalog

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/simlink-project/simlink/internal/protocol"
)

//go:embed message_template.msg
var embeddedTemplate []byte

// ErrUnknownMessage is returned for names or ids the catalog does not hold.
var ErrUnknownMessage = protocol.NewError(protocol.KindCatalog, "unknown message")

// Entry is one message definition.
type Entry struct {
	Name      string             `json:"name"`
	ID        protocol.MessageID `json:"id"`
	Trusted   bool               `json:"trusted"`
	Zerocoded bool               `json:"zerocoded"`
}

// Catalog is a bijective name <-> id table.
type Catalog struct {
	byName  map[string]Entry
	byID    map[protocol.MessageID]string
	entries []Entry
}

// Default parses the embedded template.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(embeddedTemplate))
}

// Load parses the template at path, or the embedded template when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message template: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads template definitions from r. Comment lines (//), structural
// lines ({ ... }) and blank lines are skipped; any other line with at least
// three words whose second word is a frequency keyword defines a message.
func Parse(r io.Reader) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]Entry),
		byID:   make(map[protocol.MessageID]string),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "{") || strings.HasPrefix(line, "}") {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 3 {
			continue
		}
		freq, ok := protocol.ParseFrequency(words[1])
		if !ok {
			continue
		}

		entry, err := parseEntry(words, freq)
		if err != nil {
			return nil, protocol.WrapError(protocol.KindCatalog, err, "template line %d", lineNo)
		}
		if err := c.add(entry); err != nil {
			return nil, protocol.WrapError(protocol.KindCatalog, err, "template line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message template: %w", err)
	}

	sort.Slice(c.entries, func(i, j int) bool {
		a, b := c.entries[i].ID, c.entries[j].ID
		if a.Frequency != b.Frequency {
			return a.Frequency < b.Frequency
		}
		return a.Number < b.Number
	})

	log.Debug().Str("component", "catalog").Int("messages", len(c.entries)).Msg("message catalog loaded")
	return c, nil
}

func parseEntry(words []string, freq protocol.Frequency) (Entry, error) {
	var (
		n   uint64
		err error
	)
	if freq == protocol.FrequencyFixed {
		digits := strings.TrimPrefix(strings.ToLower(words[2]), "0x")
		n, err = strconv.ParseUint(digits, 16, 32)
	} else {
		n, err = strconv.ParseUint(words[2], 10, 32)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("bad number %q for %s: %w", words[2], words[0], err)
	}

	e := Entry{
		Name: words[0],
		ID:   protocol.MessageID{Number: uint32(n), Frequency: freq},
	}
	if !e.ID.Valid() {
		return Entry{}, fmt.Errorf("%s: %s is outside its class range", e.Name, e.ID)
	}
	if len(words) > 3 {
		e.Trusted = words[3] == "Trusted"
	}
	if len(words) > 4 {
		e.Zerocoded = words[4] == "Zerocoded"
	}
	return e, nil
}

func (c *Catalog) add(e Entry) error {
	if _, dup := c.byName[e.Name]; dup {
		return fmt.Errorf("duplicate message name %s", e.Name)
	}
	if other, dup := c.byID[e.ID]; dup {
		return fmt.Errorf("%s reuses id %s of %s", e.Name, e.ID, other)
	}
	c.byName[e.Name] = e
	c.byID[e.ID] = e.Name
	c.entries = append(c.entries, e)
	return nil
}

// NameFor resolves an id to its message name.
func (c *Catalog) NameFor(id protocol.MessageID) (string, error) {
	name, ok := c.byID[id]
	if !ok {
		return "", protocol.WrapError(protocol.KindCatalog, ErrUnknownMessage, "id %s", id)
	}
	return name, nil
}

// EncodingFor resolves a message name to its id.
func (c *Catalog) EncodingFor(name string) (protocol.MessageID, error) {
	e, err := c.Lookup(name)
	if err != nil {
		return protocol.MessageID{}, err
	}
	return e.ID, nil
}

// Lookup returns the full entry for a message name.
func (c *Catalog) Lookup(name string) (Entry, error) {
	e, ok := c.byName[name]
	if !ok {
		return Entry{}, protocol.WrapError(protocol.KindCatalog, ErrUnknownMessage, "name %q", name)
	}
	return e, nil
}

// Entries returns every entry ordered by frequency class then number.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

func (c *Catalog) Len() int {
	return len(c.entries)
}
