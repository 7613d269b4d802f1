package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"polgar_trainer/internal/domain/puzzle"
)

// legacyPuzzle is the generator output shape: the solution is a flat
// semicolon-separated move line, not yet a tree.
type legacyPuzzle struct {
	ProblemID int    `json:"problemid"`
	First     string `json:"first"`
	Type      string `json:"type"`
	FEN       string `json:"fen"`
	Moves     string `json:"moves"`
}

// chunkEnvelope is the other legacy layout, a whole problem set in one file.
type chunkEnvelope struct {
	Problems []legacyPuzzle `json:"problems"`
}

// ParseChunkFile reads one legacy puzzle file. Chunk files (chunk-N.json,
// 100 puzzles each) hold a bare array; full generator dumps wrap the array in
// {"problems": [...]}. Both are accepted.
func ParseChunkFile(path string) ([]puzzle.Puzzle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []legacyPuzzle
	if err := json.Unmarshal(data, &entries); err != nil {
		var envelope chunkEnvelope
		if err2 := json.Unmarshal(data, &envelope); err2 != nil {
			return nil, fmt.Errorf("file %s is neither a chunk array nor a problems envelope: %w", path, err)
		}
		entries = envelope.Problems
	}

	puzzles := make([]puzzle.Puzzle, 0, len(entries))
	for _, entry := range entries {
		tree, err := puzzle.TreeFromLegacyMoves(entry.Moves)
		if err != nil {
			return nil, fmt.Errorf("puzzle %d in %s: %w", entry.ProblemID, path, err)
		}
		puzzles = append(puzzles, puzzle.Puzzle{
			ProblemID: entry.ProblemID,
			First:     entry.First,
			Type:      entry.Type,
			FEN:       entry.FEN,
			Tree:      tree,
		})
	}

	return puzzles, nil
}

// PutAllPuzzlesToMongoByPath walks a directory of legacy JSON files and
// inserts every puzzle found, converting flat solutions to trees.
func (r *PuzzleRepository) PutAllPuzzlesToMongoByPath(ctx context.Context, pathToPuzzles string) (int, error) {
	inserted := 0

	err := filepath.Walk(pathToPuzzles, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}

		puzzles, err := ParseChunkFile(path)
		if err != nil {
			return fmt.Errorf("failed to process %s: %w", path, err)
		}

		if err := r.SavePuzzles(ctx, puzzles); err != nil {
			return fmt.Errorf("failed to save puzzles from %s: %w", path, err)
		}

		inserted += len(puzzles)
		r.log.Infof("imported %d puzzles from %s", len(puzzles), path)
		return nil
	})

	return inserted, err
}

func (r *PuzzleRepository) SavePuzzles(ctx context.Context, puzzles []puzzle.Puzzle) error {
	if len(puzzles) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(puzzles))
	for _, p := range puzzles {
		doc, err := toDoc(p)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	_, err := r.mongo.Collection(puzzleCollection).InsertMany(ctx, docs)
	return err
}
