package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"polgar_trainer/internal/bootstrap"
	"polgar_trainer/internal/domain/puzzle"
	errs "polgar_trainer/internal/errors"
)

const puzzleCollection = "puzzles"

type PuzzleRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewPuzzleRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *PuzzleRepository {
	return &PuzzleRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

// puzzleDoc is the stored shape. The solution tree is kept as its canonical
// JSON string so the child key order survives the round trip through BSON.
type puzzleDoc struct {
	ProblemID int    `bson:"problemid"`
	First     string `bson:"first"`
	Type      string `bson:"type"`
	FEN       string `bson:"fen"`
	Tree      string `bson:"tree"`
}

func (r *PuzzleRepository) GetPuzzleByID(ctx context.Context, id int) (puzzle.Puzzle, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(puzzleCollection)
	filter := bson.M{"problemid": id}

	var doc puzzleDoc
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return puzzle.Puzzle{}, errs.ErrPuzzleNotFound
	} else if err != nil {
		r.log.Errorf("failed to fetch puzzle %d: %v", id, err)
		return puzzle.Puzzle{}, err
	}

	return fromDoc(doc)
}

func (r *PuzzleRepository) CountPuzzles(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := r.mongo.Collection(puzzleCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		r.log.Errorf("failed to count puzzles: %v", err)
		return 0, err
	}
	return int(count), nil
}

func lastPuzzleKey(userID string) string {
	return "trainer:last:" + userID
}

func (r *PuzzleRepository) SaveLastPuzzleID(ctx context.Context, userID string, id int) error {
	return r.redis.Set(ctx, lastPuzzleKey(userID), id, 0).Err()
}

// LoadLastPuzzleID returns 0 without error when the user has no stored puzzle.
func (r *PuzzleRepository) LoadLastPuzzleID(ctx context.Context, userID string) (int, error) {
	v, err := r.redis.Get(ctx, lastPuzzleKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func fromDoc(doc puzzleDoc) (puzzle.Puzzle, error) {
	tree := puzzle.NewNode()
	if err := json.Unmarshal([]byte(doc.Tree), tree); err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("puzzle %d has a malformed solution tree: %w", doc.ProblemID, err)
	}

	return puzzle.Puzzle{
		ProblemID: doc.ProblemID,
		First:     doc.First,
		Type:      doc.Type,
		FEN:       doc.FEN,
		Tree:      tree,
	}, nil
}

func toDoc(p puzzle.Puzzle) (puzzleDoc, error) {
	treeJSON, err := json.Marshal(p.Tree)
	if err != nil {
		return puzzleDoc{}, err
	}
	return puzzleDoc{
		ProblemID: p.ProblemID,
		First:     p.First,
		Type:      p.Type,
		FEN:       p.FEN,
		Tree:      string(treeJSON),
	}, nil
}
