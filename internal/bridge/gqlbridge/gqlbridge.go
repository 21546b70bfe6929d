// gqlbridge exposes the bridge as a GraphQL endpoint
package gqlbridge

import (
	"context"
	"net/http"
	"sort"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/bridge"
)

// Path is where the handler is mounted by the bridge server
const Path = "/graphql"

const schemaString = `
schema {
	query: Query
	mutation: Mutation
}

type Query {
	health: String!
	componentCounts: [ComponentCount!]!
}

type Mutation {
	hover(x: Float!, y: Float!): CommandResult!
	click(x: Float!, y: Float!): CommandResult!
	screenshot(path: String!): CommandResult!
}

type CommandResult {
	success: Boolean!
	message: String!
}

type ComponentCount {
	name: String!
	count: Int!
}
`

// New parses the schema and returns the HTTP handler
func New(dispatcher *bridge.Dispatcher) (http.Handler, error) {
	schema, err := graphql.ParseSchema(schemaString, &resolver{dispatcher: dispatcher})
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse graphql schema")
	}
	return &relay.Handler{Schema: schema}, nil
}

type resolver struct {
	dispatcher *bridge.Dispatcher
}

type coordinateArgs struct {
	X float64
	Y float64
}

type screenshotArgs struct {
	Path string
}

func (r *resolver) Health() string {
	return "OK"
}

func (r *resolver) ComponentCounts(ctx context.Context) ([]*componentCount, error) {
	counts, err := r.dispatcher.QueryComponents(ctx)
	if errors.Is(err, bridge.ErrTimeout) {
		return nil, errors.New("query timed out")
	}
	if err != nil {
		return nil, errors.Wrap(err, "receive response failed")
	}
	results := make([]*componentCount, 0, len(counts))
	for name, count := range counts {
		results = append(results, &componentCount{
			name:  name,
			count: int32(count),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].name < results[j].name
	})
	return results, nil
}

func (r *resolver) Hover(ctx context.Context, args coordinateArgs) (*commandResult, error) {
	ok, err := r.dispatcher.Hover(ctx, float32(args.X), float32(args.Y))
	return newCommandResult("hover", ok, err)
}

func (r *resolver) Click(ctx context.Context, args coordinateArgs) (*commandResult, error) {
	ok, err := r.dispatcher.Click(ctx, float32(args.X), float32(args.Y))
	return newCommandResult("click", ok, err)
}

func (r *resolver) Screenshot(ctx context.Context, args screenshotArgs) (*commandResult, error) {
	ok, err := r.dispatcher.Screenshot(ctx, args.Path)
	if err != nil {
		return nil, errors.Wrap(err, "screenshot")
	}
	result := &commandResult{success: ok}
	if ok {
		result.message = "screenshot completed: " + args.Path
	} else {
		result.message = "screenshot failed: " + args.Path
	}
	return result, nil
}

func newCommandResult(actionName string, ok bool, err error) (*commandResult, error) {
	if err != nil {
		return nil, errors.Wrap(err, actionName)
	}
	result := &commandResult{success: ok}
	if ok {
		result.message = actionName + " completed"
	} else {
		result.message = actionName + " failed"
	}
	return result, nil
}

type commandResult struct {
	success bool
	message string
}

func (c *commandResult) Success() bool   { return c.success }
func (c *commandResult) Message() string { return c.message }

type componentCount struct {
	name  string
	count int32
}

func (c *componentCount) Name() string { return c.name }
func (c *componentCount) Count() int32 { return c.count }
