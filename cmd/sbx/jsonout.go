package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/seqbox/sbx"
)

type decodeJSON struct {
	Version      string `json:"version"`
	FileUID      string `json:"file_uid"`
	BytesWritten int64  `json:"bytes_written"`
	HashVerified bool   `json:"hash_verified"`
	HashMatches  bool   `json:"hash_matches"`
}

func printDecodeJSON(result sbx.DecodeResult) error {
	out := decodeJSON{
		Version:      result.Version.String(),
		FileUID:      hex.EncodeToString(result.FileUID[:]),
		BytesWritten: result.BytesWritten,
		HashVerified: result.HashVerified,
		HashMatches:  result.HashVerified && !result.HashMismatch,
	}
	return writeJSON(out)
}

type metaFieldJSON struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type showJSON struct {
	Offset  int64           `json:"offset"`
	Version string          `json:"version"`
	FileUID string          `json:"file_uid"`
	Fields  []metaFieldJSON `json:"fields"`
}

func printShowJSON(reports []sbx.MetaReport) error {
	out := make([]showJSON, len(reports))
	for i, r := range reports {
		fields := make([]metaFieldJSON, len(r.Fields))
		for j, f := range r.Fields {
			fields[j] = metaFieldJSON{ID: string(f.ID), Value: f.Display}
		}
		out[i] = showJSON{
			Offset:  r.Offset,
			Version: r.Version.String(),
			FileUID: hex.EncodeToString(r.FileUID[:]),
			Fields:  fields,
		}
	}
	return writeJSON(out)
}

func printCalcJSON(breakdown CalcBreakdown) error {
	return writeJSON(breakdown)
}

type setRepairJSON struct {
	StartSeqNum  uint32 `json:"start_seq_num"`
	PresentCount int    `json:"present_count"`
	MissingCount int    `json:"missing_count"`
	Successful   bool   `json:"successful"`
}

type repairJSON struct {
	MetadataRepaired bool            `json:"metadata_repaired"`
	Sets             []setRepairJSON `json:"sets"`
	BlocksFixed      int             `json:"blocks_fixed"`
	BlocksLost       int             `json:"blocks_lost"`
}

func printRepairJSON(metaResult sbx.SetRepairResult, result sbx.RepairResult) error {
	sets := make([]setRepairJSON, len(result.Sets))
	for i, s := range result.Sets {
		sets[i] = setRepairJSON{
			StartSeqNum:  s.StartSeqNum,
			PresentCount: s.PresentCount,
			MissingCount: s.MissingCount,
			Successful:   s.Successful,
		}
	}
	return writeJSON(repairJSON{
		MetadataRepaired: metaResult.Successful,
		Sets:             sets,
		BlocksFixed:      result.BlocksFixed,
		BlocksLost:       result.BlocksLost,
	})
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
