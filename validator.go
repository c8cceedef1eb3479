package arinc665

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ValidationInfoHandler receives one human-readable finding at a time
// (§4.I "a stream of human-readable findings via an information
// callback"). It is called for every problem encountered, not only the
// first.
type ValidationInfoHandler func(message string)

// ValidateOptions is the input to Validate (§4.I): the same inputs as
// Decompile, since validation reads the same five file kinds, plus a
// flag to stop at the first failure.
type ValidateOptions struct {
	Media              []MediumNumber
	ReadFile           ReadFile
	Info               ValidationInfoHandler
	StopOnFirstFailure bool
	Progress           ProgressHandler
	Cancel             CancelFunc
}

// Validate verifies the integrity properties of §4.G step 7 — file
// CRC-16s, load CRC-32s, declared check values, and the list-file
// cross-checks of §4.G steps 1-2 — without constructing the full
// in-memory model (§4.I). It returns false if any finding is reported;
// every finding reaches Info unless StopOnFirstFailure is set, in which
// case Validate returns at the first checkpoint after a finding.
func Validate(opts ValidateOptions) (bool, error) {
	info := opts.Info
	if info == nil {
		info = func(string) {}
	}
	progress := progressOrNoop(opts.Progress)
	ok := true
	report := func(format string, args ...any) {
		ok = false
		msg := fmt.Sprintf(format, args...)
		Log.WithField("finding", msg).Warning("validation finding")
		info(msg)
	}
	stop := func() bool { return opts.StopOnFirstFailure && !ok }

	if len(opts.Media) == 0 {
		return false, errors.Wrap(Inconsistent, "no media supplied")
	}
	media := append([]MediumNumber(nil), opts.Media...)
	sort.Slice(media, func(i, j int) bool { return media[i] < media[j] })

	type fileLoc struct {
		medium     MediumNumber
		path       string
		crc        uint16
		checkValue *CheckValue
	}
	byName := map[string]fileLoc{}

	var partNumber PartNumber
	var declaredMembers uint8
	havePartNumber := false

	for i, n := range media {
		if cancelled(opts.Cancel) {
			return false, Cancelled
		}
		buf, err := opts.ReadFile(n, "FILES.LUM")
		if err != nil {
			return false, errors.Wrapf(err, "reading FILES.LUM on medium %s", n)
		}
		fl, err := DecodeFileList(buf)
		if err != nil {
			report("medium %s: FILES.LUM: %v", n, err)
			if stop() {
				return false, nil
			}
			continue
		}
		if MediumNumber(fl.MediaSequenceNumber) != n {
			report("medium %s: FILES.LUM declares sequence number %d", n, fl.MediaSequenceNumber)
		}
		if !havePartNumber {
			partNumber = fl.PartNumber
			declaredMembers = fl.NumberOfMediaSetMembers
			havePartNumber = true
		} else {
			if fl.PartNumber != partNumber {
				report("medium %s: part number %s disagrees with %s", n, fl.PartNumber, partNumber)
			}
			if fl.NumberOfMediaSetMembers != declaredMembers {
				report("medium %s: declares %d members, expected %d", n, fl.NumberOfMediaSetMembers, declaredMembers)
			}
		}
		for _, e := range fl.Files {
			byName[e.Filename] = fileLoc{medium: n, path: filePathFromEntry(e), crc: e.CRC, checkValue: e.CheckValue}
		}
		progress(PhaseMedium, i+1, len(media), n.String())
		if stop() {
			return false, nil
		}
	}

	authoritative := media[0]
	loadList := &LoadList{}
	if buf, err := opts.ReadFile(authoritative, "LOADS.LUM"); err != nil {
		return false, errors.Wrap(err, "reading LOADS.LUM")
	} else if ll, err := DecodeLoadList(buf); err != nil {
		report("LOADS.LUM: %v", err)
	} else {
		loadList = ll
	}

	batchList := &BatchListFile{}
	if buf, err := opts.ReadFile(authoritative, "BATCHES.LUM"); err != nil {
		return false, errors.Wrap(err, "reading BATCHES.LUM")
	} else if bl, err := DecodeBatchListFile(buf); err != nil {
		report("BATCHES.LUM: %v", err)
	} else {
		batchList = bl
	}

	for _, n := range media[1:] {
		if stop() {
			return false, nil
		}
		if err := crossCheckLoadsAndBatches(opts.ReadFile, n, loadList, batchList); err != nil {
			report("%v", err)
		}
	}

	for name, loc := range byName {
		if stop() {
			return false, nil
		}
		buf, err := opts.ReadFile(loc.medium, loc.path)
		if err != nil {
			report("%s: %v", name, err)
			continue
		}
		if got := CRC16(buf); got != loc.crc {
			report("%s: CRC-16 mismatch: got %#04x want %#04x", name, got, loc.crc)
			continue
		}
		if loc.checkValue != nil {
			got, err := Compute(loc.checkValue.Type, buf)
			if err != nil {
				report("%s: %v", name, err)
				continue
			}
			if !bytesEqual(got.Bytes, loc.checkValue.Bytes) {
				report("%s: check value mismatch", name)
			}
		}
	}

	for i, entry := range loadList.Loads {
		if stop() {
			return false, nil
		}
		loc, known := byName[entry.HeaderFilename]
		if !known {
			report("load %s: header file not present in FILES.LUM", entry.HeaderFilename)
			continue
		}
		buf, err := opts.ReadFile(loc.medium, loc.path)
		if err != nil {
			report("load %s: %v", entry.HeaderFilename, err)
			continue
		}
		lh, err := DecodeLoadHeader(buf)
		if err != nil {
			report("load %s: %v", entry.HeaderFilename, err)
			continue
		}
		var data []byte
		broken := false
		for _, e := range append(append([]LoadFileEntry{}, lh.DataFiles...), lh.SupportFiles...) {
			fl, known := byName[e.Filename]
			if !known {
				report("load %s: referenced file %s not present", entry.HeaderFilename, e.Filename)
				broken = true
				continue
			}
			b, err := opts.ReadFile(fl.medium, fl.path)
			if err != nil {
				report("load %s: reading %s: %v", entry.HeaderFilename, e.Filename, err)
				broken = true
				continue
			}
			data = append(data, b...)
		}
		if !broken {
			if got := CRC32(data); got != lh.LoadCRC {
				report("load %s: load CRC mismatch", entry.HeaderFilename)
			}
		}
		progress(PhaseLoad, i+1, len(loadList.Loads), entry.HeaderFilename)
	}

	for i, entry := range batchList.Batches {
		if stop() {
			return false, nil
		}
		loc, known := byName[entry.Filename]
		if !known {
			report("batch %s: not present in FILES.LUM", entry.Filename)
			continue
		}
		buf, err := opts.ReadFile(loc.medium, loc.path)
		if err != nil {
			report("batch %s: %v", entry.Filename, err)
			continue
		}
		bf, err := DecodeBatchFile(buf)
		if err != nil {
			report("batch %s: %v", entry.Filename, err)
			continue
		}
		for _, t := range bf.Targets {
			for _, l := range t.Loads {
				if _, known := byName[l.HeaderFilename]; !known {
					report("batch %s: referenced load %s not present", entry.Filename, l.HeaderFilename)
				}
			}
		}
		progress(PhaseBatch, i+1, len(batchList.Batches), entry.Filename)
	}

	return ok, nil
}

// filePathFromEntry renders a FILES.LUM entry's declared location as a
// medium-relative path for the ReadFile callback.
func filePathFromEntry(e FileListEntry) string {
	segs := arincPathSegments(e.Pathname)
	segs = append(segs, e.Filename)
	return strings.Join(segs, "/")
}
