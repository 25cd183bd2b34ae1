package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// maxTransactItems is DynamoDB's per-transaction item limit.
	maxTransactItems = 100

	tableWaitTimeout = 2 * time.Minute
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoBackend.
// *dynamodb.Client satisfies it.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoConfig holds configuration for DynamoBackend.
type DynamoConfig struct {
	// TablePrefix is prepended to container names to form table names.
	// Default: "projectideas"
	TablePrefix string

	// ConsistentReads enables strongly consistent point reads and queries.
	ConsistentReads bool
}

// DefaultDynamoConfig returns sensible defaults.
func DefaultDynamoConfig() DynamoConfig {
	return DynamoConfig{
		TablePrefix: "projectideas",
	}
}

// DynamoBackend stores each container in its own table, keyed by the
// container's partition key attribute (HASH) and "id" (RANGE).
type DynamoBackend struct {
	client DynamoAPI
	config DynamoConfig
}

// NewDynamoBackend creates a DynamoDB-backed Backend.
func NewDynamoBackend(client DynamoAPI, config DynamoConfig) *DynamoBackend {
	if config.TablePrefix == "" {
		config.TablePrefix = DefaultDynamoConfig().TablePrefix
	}
	return &DynamoBackend{client: client, config: config}
}

// TableName returns the table holding a container.
func (b *DynamoBackend) TableName(c Container) string {
	return b.config.TablePrefix + "_" + c.Name
}

func (b *DynamoBackend) key(c Container, id, partitionKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		c.PartitionKey: &types.AttributeValueMemberS{Value: partitionKey},
		"id":           &types.AttributeValueMemberS{Value: id},
	}
}

// Get performs a GetItem.
func (b *DynamoBackend) Get(ctx context.Context, c Container, id, partitionKey string) (Attributes, error) {
	result, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.TableName(c)),
		Key:            b.key(c, id, partitionKey),
		ConsistentRead: aws.Bool(b.config.ConsistentReads),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// Put performs a PutItem, conditional on absence when create is set.
func (b *DynamoBackend) Put(ctx context.Context, c Container, item Attributes, create bool) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(b.TableName(c)),
		Item:      item,
	}
	if create {
		input.ConditionExpression = aws.String("attribute_not_exists(id)")
	}
	_, err := b.client.PutItem(ctx, input)
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrConflict
	}
	return err
}

// Remove performs a DeleteItem conditional on presence.
func (b *DynamoBackend) Remove(ctx context.Context, c Container, id, partitionKey string) error {
	_, err := b.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(b.TableName(c)),
		Key:                 b.key(c, id, partitionKey),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrNotFound
	}
	return err
}

// Find runs one Query per pinned partition key, or a Scan when the query
// does not pin the partition key.
func (b *DynamoBackend) Find(ctx context.Context, q *Query) ([]Attributes, error) {
	plan, err := b.plan(q)
	if err != nil {
		return nil, err
	}
	var items []Attributes
	err = plan.each(ctx, b, func(page []map[string]types.AttributeValue, _ int32) {
		for _, item := range page {
			if plan.postFilter(item) {
				items = append(items, item)
			}
		}
	})
	return items, err
}

// Count uses Select=COUNT unless some restriction has to be evaluated after
// the read, in which case matching documents are counted client side.
func (b *DynamoBackend) Count(ctx context.Context, q *Query) (int, error) {
	plan, err := b.plan(q)
	if err != nil {
		return 0, err
	}
	if len(plan.residual) > 0 || plan.residualType {
		items, err := b.Find(ctx, q)
		return len(items), err
	}
	plan.count = true
	total := 0
	err = plan.each(ctx, b, func(_ []map[string]types.AttributeValue, n int32) {
		total += int(n)
	})
	return total, err
}

// Execute reads every document of a partition, applies proc and writes back
// what it returns. Writes go out in transactions of at most 100 items, so a
// partition with more changed documents is rewritten in several steps.
func (b *DynamoBackend) Execute(ctx context.Context, c Container, partitionKey string, proc Procedure) error {
	keyCond := expression.Key(c.PartitionKey).Equal(expression.Value(partitionKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return fmt.Errorf("build key condition: %w", err)
	}

	var items []Attributes
	paginator := dynamodb.NewQueryPaginator(b.client, &dynamodb.QueryInput{
		TableName:                 aws.String(b.TableName(c)),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		items = append(items, page.Items...)
	}

	changed := proc(items)
	for start := 0; start < len(changed); start += maxTransactItems {
		end := min(start+maxTransactItems, len(changed))
		writes := make([]types.TransactWriteItem, 0, end-start)
		for _, item := range changed[start:end] {
			writes = append(writes, types.TransactWriteItem{
				Put: &types.Put{
					TableName: aws.String(b.TableName(c)),
					Item:      item,
				},
			})
		}
		if _, err := b.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: writes,
		}); err != nil {
			return fmt.Errorf("rewrite partition %s: %w", partitionKey, err)
		}
	}
	return nil
}

// CreateTables provisions one table per registered container. Existing tables
// are left alone. streamContainers get a NEW_AND_OLD_IMAGES stream.
func (b *DynamoBackend) CreateTables(ctx context.Context, registry *Registry, streamContainers ...string) error {
	streamed := make(map[string]bool, len(streamContainers))
	for _, name := range streamContainers {
		streamed[name] = true
	}

	for _, c := range registry.Containers() {
		input := &dynamodb.CreateTableInput{
			TableName: aws.String(b.TableName(c)),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(c.PartitionKey), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(c.PartitionKey), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeRange},
			},
			BillingMode: types.BillingModePayPerRequest,
		}
		if streamed[c.Name] {
			input.StreamSpecification = &types.StreamSpecification{
				StreamEnabled:  aws.Bool(true),
				StreamViewType: types.StreamViewTypeNewAndOldImages,
			}
		}

		_, err := b.client.CreateTable(ctx, input)
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create table %s: %w", b.TableName(c), err)
		}

		waiter := dynamodb.NewTableExistsWaiter(b.client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(b.TableName(c)),
		}, tableWaitTimeout); err != nil {
			return fmt.Errorf("wait for table %s: %w", b.TableName(c), err)
		}
	}
	return nil
}

// queryPlan is a Query or Scan derived from a *Query.
type queryPlan struct {
	table         string
	partitionKey  string
	partitionKeys []string
	id            string
	filter        expression.ConditionBuilder
	hasFilter     bool
	residual      []Condition
	residualType  bool
	types         []string
	count         bool
	consistent    bool
}

// plan splits q into key conditions, a filter and residual conditions.
// The conditions that become the key condition need no further check. Query
// filter expressions cannot reference key attributes, so any other
// restriction on the partition key or id is evaluated on the returned items.
func (b *DynamoBackend) plan(q *Query) (*queryPlan, error) {
	c := q.Container
	p := &queryPlan{
		table:        b.TableName(c),
		partitionKey: c.PartitionKey,
		types:        q.Types,
		consistent:   b.config.ConsistentReads,
	}

	pkValues, pkCond, pinned := pinnedValues(q, c.PartitionKey)
	idCond := -1
	if pinned {
		p.partitionKeys = pkValues
		if i := idCondition(q); i >= 0 {
			idCond = i
			p.id = q.Conditions[i].Values[0].(string)
		}
	}

	var filters []expression.ConditionBuilder
	for i, cond := range q.Conditions {
		if i == pkCond || i == idCond {
			continue
		}
		if pinned && (cond.Field == c.PartitionKey || cond.Field == "id") {
			p.residual = append(p.residual, cond)
			continue
		}
		f, err := conditionExpr(cond)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", q, err)
		}
		filters = append(filters, f)
	}
	if pinned && c.PartitionKey == "type" {
		// Partitions named by one of the query's types need no type check.
		p.residualType = !subset(pkValues, q.Types)
	} else {
		filters = append(filters, typeFilter(q.Types))
	}

	switch len(filters) {
	case 0:
	case 1:
		p.filter, p.hasFilter = filters[0], true
	default:
		p.filter, p.hasFilter = expression.And(filters[0], filters[1], filters[2:]...), true
	}
	return p, nil
}

func (p *queryPlan) postFilter(item Attributes) bool {
	for _, cond := range p.residual {
		if !cond.Matches(item) {
			return false
		}
	}
	if p.residualType {
		typeName := stringAttr(item, "type")
		for _, t := range p.types {
			if t == typeName {
				return true
			}
		}
		return false
	}
	return true
}

// each runs the plan, calling fn once per result page.
func (p *queryPlan) each(ctx context.Context, b *DynamoBackend, fn func(items []map[string]types.AttributeValue, count int32)) error {
	var selectMode types.Select
	if p.count {
		selectMode = types.SelectCount
	}

	if !p.pinned() {
		input, err := p.scanInput(selectMode)
		if err != nil {
			return err
		}
		paginator := dynamodb.NewScanPaginator(b.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			fn(page.Items, page.Count)
		}
		return nil
	}

	for _, pk := range p.partitionKeys {
		input, err := p.queryInput(pk, selectMode)
		if err != nil {
			return err
		}
		paginator := dynamodb.NewQueryPaginator(b.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			fn(page.Items, page.Count)
		}
	}
	return nil
}

func (p *queryPlan) pinned() bool {
	return p.partitionKeys != nil
}

func (p *queryPlan) scanInput(selectMode types.Select) (*dynamodb.ScanInput, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(p.table),
		ConsistentRead: aws.Bool(p.consistent),
		Select:         selectMode,
	}
	if !p.hasFilter {
		return input, nil
	}
	expr, err := expression.NewBuilder().WithFilter(p.filter).Build()
	if err != nil {
		return nil, err
	}
	input.FilterExpression = expr.Filter()
	input.ExpressionAttributeNames = expr.Names()
	input.ExpressionAttributeValues = expr.Values()
	return input, nil
}

func (p *queryPlan) queryInput(pk string, selectMode types.Select) (*dynamodb.QueryInput, error) {
	keyCond := expression.Key(p.partitionKey).Equal(expression.Value(pk))
	if p.id != "" {
		keyCond = keyCond.And(expression.Key("id").Equal(expression.Value(p.id)))
	}
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if p.hasFilter {
		builder = builder.WithFilter(p.filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, err
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(p.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(p.consistent),
		Select:                    selectMode,
	}
	if p.hasFilter {
		input.FilterExpression = expr.Filter()
	}
	return input, nil
}

// pinnedValues returns the partition key values q is restricted to by an
// equality or IN condition, and the index of that condition.
func pinnedValues(q *Query, field string) ([]string, int, bool) {
	for i, cond := range q.Conditions {
		if cond.Field != field || (cond.Op != OpEqual && cond.Op != OpIn) {
			continue
		}
		values := make([]string, 0, len(cond.Values))
		seen := make(map[string]bool, len(cond.Values))
		for _, v := range cond.Values {
			s, ok := v.(string)
			if !ok || seen[s] {
				continue
			}
			seen[s] = true
			values = append(values, s)
		}
		return values, i, true
	}
	return nil, -1, false
}

// idCondition returns the index of the id equality that becomes part of the
// key condition, or -1.
func idCondition(q *Query) int {
	for i, cond := range q.Conditions {
		if cond.Op != OpEqual || cond.Field != "id" {
			continue
		}
		if _, ok := cond.Values[0].(string); ok {
			return i
		}
	}
	return -1
}

func subset(values, of []string) bool {
	for _, v := range values {
		if !slices.Contains(of, v) {
			return false
		}
	}
	return true
}

func typeFilter(typeNames []string) expression.ConditionBuilder {
	name := expression.Name("type")
	if len(typeNames) == 0 {
		// Abstract kinds without variants match nothing.
		return name.AttributeNotExists().And(name.AttributeExists())
	}
	operands := make([]expression.OperandBuilder, len(typeNames))
	for i, t := range typeNames {
		operands[i] = expression.Value(t)
	}
	return name.In(operands[0], operands[1:]...)
}

func conditionExpr(c Condition) (expression.ConditionBuilder, error) {
	name := expression.Name(c.Field)
	switch c.Op {
	case OpEqual:
		return name.Equal(expression.Value(c.Values[0])), nil
	case OpIn:
		if len(c.Values) == 0 {
			return expression.ConditionBuilder{}, fmt.Errorf("empty IN list on %s", c.Field)
		}
		operands := make([]expression.OperandBuilder, len(c.Values))
		for i, v := range c.Values {
			operands[i] = expression.Value(v)
		}
		return name.In(operands[0], operands[1:]...), nil
	case OpContains:
		s, ok := c.Values[0].(string)
		if !ok {
			return expression.ConditionBuilder{}, fmt.Errorf("contains on %s needs a string value", c.Field)
		}
		return name.Contains(s), nil
	case OpAny:
		if len(c.Any) == 0 {
			return expression.ConditionBuilder{}, errors.New("empty OR group")
		}
		subs := make([]expression.ConditionBuilder, len(c.Any))
		for i, sub := range c.Any {
			f, err := conditionExpr(sub)
			if err != nil {
				return expression.ConditionBuilder{}, err
			}
			subs[i] = f
		}
		if len(subs) == 1 {
			return subs[0], nil
		}
		return expression.Or(subs[0], subs[1], subs[2:]...), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("unsupported operator %d", c.Op)
}
