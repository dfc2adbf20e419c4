// Package aliases loads the curated plant alias table from disk. The table
// is reference data: rows carry (numeric code, deck-native name, curated full
// name), semicolon-delimited, and codes in it are never trusted without a
// matching live snapshot entry.
package aliases

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/plant"
)

// Load parses the alias table at path. A missing file returns
// domain.ErrAliasTableNotFound so callers can degrade instead of failing;
// malformed rows are skipped and logged, never fatal.
func Load(path string, logger *zap.Logger) ([]plant.AliasRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("alias table %s: %w", path, domain.ErrAliasTableNotFound)
		}
		return nil, fmt.Errorf("open alias table %s: %w", path, err)
	}
	defer f.Close()

	records, err := parse(f, logger)
	if err != nil {
		return nil, fmt.Errorf("parse alias table %s: %w", path, err)
	}
	return records, nil
}

func parse(r io.Reader, logger *zap.Logger) ([]plant.AliasRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	type key struct {
		code int
		deck string
	}
	byKey := make(map[key]int)

	var (
		records []plant.AliasRecord
		line    int
	)
	for {
		line++
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("Skipping unreadable alias table row", zap.Int("line", line), zap.Error(err))
			continue
		}

		rec, ok := parseRow(row)
		if !ok {
			// The header row lands here too; real malformed rows are rare
			// enough that one warning per row is fine.
			logger.Warn("Skipping malformed alias table row",
				zap.Int("line", line),
				zap.Strings("row", row),
			)
			continue
		}

		// Same (code, deck name) twice: keep the row with the longer curated
		// name, it carries more matching signal.
		k := key{code: rec.Code(), deck: strings.ToLower(rec.DeckName())}
		if i, dup := byKey[k]; dup {
			if len(rec.FullName()) > len(records[i].FullName()) {
				records[i] = rec
			}
			continue
		}
		byKey[k] = len(records)
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string) (plant.AliasRecord, bool) {
	if len(row) < 3 {
		return plant.AliasRecord{}, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return plant.AliasRecord{}, false
	}
	deckName := strings.TrimSpace(row[1])
	fullName := strings.TrimSpace(row[2])
	if deckName == "" || fullName == "" {
		return plant.AliasRecord{}, false
	}
	return plant.NewAliasRecord(code, deckName, fullName), true
}
