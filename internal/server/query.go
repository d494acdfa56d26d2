package server

import (
	"context"
	"errors"
	"net/http"

	"ctfd-bot/internal/domain"
	"ctfd-bot/internal/tracker"

	"connectrpc.com/connect"
)

const QueryServicePath = "/ctfdbot.v1.QueryService/"

type Queries interface {
	Scoreboard(ctx context.Context, all bool) ([]domain.ScoreEntry, error)
	Categories(ctx context.Context) ([]string, error)
	Category(ctx context.Context, name string) ([]domain.ChallengeInfo, error)
	WhoSolved(ctx context.Context, challenge string) ([]string, error)
	SolvedLastDays(ctx context.Context, days int, user string) ([]domain.UserSolves, error)
	Diff(ctx context.Context, user1, user2 string) (*domain.SolveDiff, error)
}

// StateSource exposes the poller's memory.
type StateSource interface {
	State() tracker.State
}

type Empty struct{}

type ScoreboardRequest struct {
	All bool `json:"all"`
}

type ScoreboardResponse struct {
	Entries []domain.ScoreEntry `json:"entries"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type CategoryResponse struct {
	Challenges []domain.ChallengeInfo `json:"challenges"`
}

type WhoSolvedRequest struct {
	Challenge string `json:"challenge"`
}

type WhoSolvedResponse struct {
	Users []string `json:"users"`
}

type SolvedLastDaysRequest struct {
	Days int    `json:"days"`
	User string `json:"user,omitempty"`
}

type SolvedLastDaysResponse struct {
	Groups []domain.UserSolves `json:"groups"`
}

type DiffRequest struct {
	User1 string `json:"user1"`
	User2 string `json:"user2"`
}

type DiffResponse struct {
	Diff *domain.SolveDiff `json:"diff"`
}

type TrackerStateResponse struct {
	LastSeen string `json:"last_seen"`
	Seeded   bool   `json:"seeded"`
	Visible  []int  `json:"visible"`
}

type QueryServer struct {
	queries Queries
	state   StateSource
}

func NewQueryServer(queries Queries, state StateSource) *QueryServer {
	return &QueryServer{queries: queries, state: state}
}

// Handler mounts every procedure of the query service under QueryServicePath.
func (s *QueryServer) Handler(opts ...connect.HandlerOption) http.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(QueryServicePath+"Scoreboard", connect.NewUnaryHandler(QueryServicePath+"Scoreboard", s.Scoreboard, opts...))
	mux.Handle(QueryServicePath+"Categories", connect.NewUnaryHandler(QueryServicePath+"Categories", s.Categories, opts...))
	mux.Handle(QueryServicePath+"Category", connect.NewUnaryHandler(QueryServicePath+"Category", s.Category, opts...))
	mux.Handle(QueryServicePath+"WhoSolved", connect.NewUnaryHandler(QueryServicePath+"WhoSolved", s.WhoSolved, opts...))
	mux.Handle(QueryServicePath+"SolvedLastDays", connect.NewUnaryHandler(QueryServicePath+"SolvedLastDays", s.SolvedLastDays, opts...))
	mux.Handle(QueryServicePath+"Diff", connect.NewUnaryHandler(QueryServicePath+"Diff", s.Diff, opts...))
	mux.Handle(QueryServicePath+"TrackerState", connect.NewUnaryHandler(QueryServicePath+"TrackerState", s.TrackerState, opts...))
	return mux
}

func connectError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, domain.ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func (s *QueryServer) Scoreboard(ctx context.Context, req *connect.Request[ScoreboardRequest]) (*connect.Response[ScoreboardResponse], error) {
	entries, err := s.queries.Scoreboard(ctx, req.Msg.All)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ScoreboardResponse{Entries: entries}), nil
}

func (s *QueryServer) Categories(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[CategoriesResponse], error) {
	categories, err := s.queries.Categories(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&CategoriesResponse{Categories: categories}), nil
}

func (s *QueryServer) Category(ctx context.Context, req *connect.Request[CategoryRequest]) (*connect.Response[CategoryResponse], error) {
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}
	challenges, err := s.queries.Category(ctx, req.Msg.Name)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&CategoryResponse{Challenges: challenges}), nil
}

func (s *QueryServer) WhoSolved(ctx context.Context, req *connect.Request[WhoSolvedRequest]) (*connect.Response[WhoSolvedResponse], error) {
	if req.Msg.Challenge == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("challenge is required"))
	}
	users, err := s.queries.WhoSolved(ctx, req.Msg.Challenge)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&WhoSolvedResponse{Users: users}), nil
}

func (s *QueryServer) SolvedLastDays(ctx context.Context, req *connect.Request[SolvedLastDaysRequest]) (*connect.Response[SolvedLastDaysResponse], error) {
	groups, err := s.queries.SolvedLastDays(ctx, req.Msg.Days, req.Msg.User)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&SolvedLastDaysResponse{Groups: groups}), nil
}

func (s *QueryServer) Diff(ctx context.Context, req *connect.Request[DiffRequest]) (*connect.Response[DiffResponse], error) {
	if req.Msg.User1 == "" || req.Msg.User2 == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user1 and user2 are required"))
	}
	diff, err := s.queries.Diff(ctx, req.Msg.User1, req.Msg.User2)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&DiffResponse{Diff: diff}), nil
}

func (s *QueryServer) TrackerState(_ context.Context, _ *connect.Request[Empty]) (*connect.Response[TrackerStateResponse], error) {
	state := s.state.State()
	return connect.NewResponse(&TrackerStateResponse{
		LastSeen: string(state.LastSeen),
		Seeded:   state.Visible != nil,
		Visible:  state.Visible.Sorted(),
	}), nil
}
