// Package etl ingests NSE source files (F&O bhavcopies, spot closes,
// interest rates, earnings calendars) and materializes per-day market
// snapshots into the store.
package etl

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// BhavcopyRow is one raw record of an NSE F&O settlement file. Column names
// follow the exchange header verbatim.
type BhavcopyRow struct {
	Instrument  string  `csv:"INSTRUMENT"`
	Symbol      string  `csv:"SYMBOL"`
	ExpiryDate  string  `csv:"EXPIRY_DT"`
	StrikePrice float64 `csv:"STRIKE_PR"`
	OptionType  string  `csv:"OPTION_TYP"`
	Open        float64 `csv:"OPEN"`
	High        float64 `csv:"HIGH"`
	Low         float64 `csv:"LOW"`
	Close       float64 `csv:"CLOSE"`
	SettlePrice float64 `csv:"SETTLE_PR"`
	Contracts   int     `csv:"CONTRACTS"`
	OpenInt     int64   `csv:"OPEN_INT"`
	Timestamp   string  `csv:"TIMESTAMP"`
}

// IsFuture reports whether the row is a futures contract (FUTSTK/FUTIDX).
func (r *BhavcopyRow) IsFuture() bool { return strings.HasPrefix(r.Instrument, "FUT") }

// IsOption reports whether the row is an option contract (OPTSTK/OPTIDX).
func (r *BhavcopyRow) IsOption() bool { return strings.HasPrefix(r.Instrument, "OPT") }

// Expiry parses the row's expiry column ("25-Apr-2025").
func (r *BhavcopyRow) Expiry() (time.Time, error) {
	return util.ParseNSEDate(strings.TrimSpace(r.ExpiryDate))
}

// BhavcopyFile is a settlement file paired with its trading date.
type BhavcopyFile struct {
	Path string
	Date time.Time
}

var bhavcopyNameRe = regexp.MustCompile(`^fo(\d{2})([A-Z]{3})(\d{4})bhav\.csv$`)

// ParseBhavcopyDate extracts the trading date from a bhavcopy filename like
// "fo13APR2025bhav.csv".
func ParseBhavcopyDate(name string) (time.Time, error) {
	m := bhavcopyNameRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a bhavcopy filename: %s", name)
	}
	// exchange months are upper case; time.Parse wants "Apr"
	mon := m[2][:1] + strings.ToLower(m[2][1:])
	t, err := time.Parse("02Jan2006", m[1]+mon+m[3])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date in %s: %w", name, err)
	}
	return util.Day(t), nil
}

// ListBhavcopies scans dir for settlement files and returns them ordered by
// trading date. Non-matching files are ignored.
func ListBhavcopies(dir string) ([]BhavcopyFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading bhavcopy dir: %w", err)
	}
	var files []BhavcopyFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d, err := ParseBhavcopyDate(e.Name())
		if err != nil {
			continue
		}
		files = append(files, BhavcopyFile{Path: filepath.Join(dir, e.Name()), Date: d})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Date.Before(files[j].Date) })
	return files, nil
}

// ReadBhavcopy parses one settlement file.
func ReadBhavcopy(path string) ([]*BhavcopyRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bhavcopy: %w", err)
	}
	defer f.Close()

	var rows []*BhavcopyRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
