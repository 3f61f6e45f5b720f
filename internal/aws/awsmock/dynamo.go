// Package awsmock holds in-memory stand-ins for the AWS clients used by the stores.
// They implement just enough of DynamoDB's condition and update grammar for the
// expressions this repository issues; anything else is rejected loudly.
package awsmock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo stores items per table in a nested map: table -> pk value -> item.
type Dynamo struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]map[string]types.AttributeValue

	// FailTransact, when set, is returned by the next TransactWriteItems call
	// without applying anything, then cleared.
	FailTransact error

	PutCalls      int
	TransactCalls int
	ScanCalls     int
	LastScan      *dyn.ScanInput
}

// NewDynamo returns an empty fake. keys maps table name to its partition key attribute.
func NewDynamo(keys map[string]string) *Dynamo {
	tables := make(map[string]map[string]map[string]types.AttributeValue, len(keys))
	for t := range keys {
		tables[t] = map[string]map[string]types.AttributeValue{}
	}
	return &Dynamo{keys: keys, tables: tables}
}

// Item returns a copy of a stored item, or nil.
func (m *Dynamo) Item(table, pk string) map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.tables[table][pk])
}

// Len reports how many items a table holds.
func (m *Dynamo) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

// Seed writes an item without evaluating conditions.
func (m *Dynamo) Seed(table string, item map[string]types.AttributeValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := m.pkValue(table, item)
	if err != nil {
		return err
	}
	m.tables[table][pk] = clone(item)
	return nil
}

func (m *Dynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	table := deref(params.TableName)
	pk, err := m.pkValue(table, params.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, m.tables[table][pk])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: ptr("The conditional request failed")}
	}
	m.tables[table][pk] = clone(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *Dynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := deref(params.TableName)
	pk, err := m.pkValue(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(item)}, nil
}

// UpdateItem supports "SET a = :x, #b = :y" assignments, upserting like DynamoDB does.
func (m *Dynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := deref(params.TableName)
	pk, err := m.pkValue(table, params.Key)
	if err != nil {
		return nil, err
	}
	existing := m.tables[table][pk]
	ok, err := evalCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: ptr("The conditional request failed")}
	}

	item := clone(existing)
	if item == nil {
		item = clone(params.Key)
	}
	expr := strings.TrimSpace(deref(params.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("awsmock: unsupported update expression %q", expr)
	}
	for _, assign := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		parts := strings.SplitN(assign, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("awsmock: bad assignment %q", assign)
		}
		name := resolveName(strings.TrimSpace(parts[0]), params.ExpressionAttributeNames)
		v, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		if !ok {
			return nil, fmt.Errorf("awsmock: missing value for %q", assign)
		}
		item[name] = v
	}
	m.tables[table][pk] = item
	return &dyn.UpdateItemOutput{Attributes: clone(item)}, nil
}

// Scan returns items ordered by partition key and honours Limit/ExclusiveStartKey so
// callers exercise their pagination loop.
func (m *Dynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScanCalls++
	m.LastScan = params
	table := deref(params.TableName)
	rows, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("awsmock: unknown table %q", table)
	}
	pks := make([]string, 0, len(rows))
	for pk := range rows {
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	start := 0
	if params.ExclusiveStartKey != nil {
		after, err := m.pkValue(table, params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.SearchStrings(pks, after)
		if start < len(pks) && pks[start] == after {
			start++
		}
	}
	end := len(pks)
	if params.Limit != nil && int(*params.Limit) > 0 && start+int(*params.Limit) < end {
		end = start + int(*params.Limit)
	}

	out := &dyn.ScanOutput{}
	for _, pk := range pks[start:end] {
		out.Items = append(out.Items, clone(rows[pk]))
	}
	out.Count = int32(len(out.Items))
	if end < len(pks) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			m.keys[table]: &types.AttributeValueMemberS{Value: pks[end-1]},
		}
	}
	return out, nil
}

// TransactWriteItems checks every condition first and applies nothing unless all pass.
func (m *Dynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransactCalls++
	if err := m.FailTransact; err != nil {
		m.FailTransact = nil
		return nil, err
	}

	type write struct {
		table, pk string
		item      map[string]types.AttributeValue
	}
	var writes []write
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	seen := map[string]bool{}

	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: ptr("None")}
		switch {
		case it.Put != nil:
			p := it.Put
			table := deref(p.TableName)
			pk, err := m.pkValue(table, p.Item)
			if err != nil {
				return nil, err
			}
			if seen[table+"/"+pk] {
				return nil, errors.New("awsmock: transaction touches the same item twice")
			}
			seen[table+"/"+pk] = true
			ok, err := evalCondition(p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues, m.tables[table][pk])
			if err != nil {
				return nil, err
			}
			if !ok {
				reasons[i] = types.CancellationReason{Code: ptr("ConditionalCheckFailed")}
				failed = true
				continue
			}
			writes = append(writes, write{table: table, pk: pk, item: p.Item})
		case it.ConditionCheck != nil:
			c := it.ConditionCheck
			table := deref(c.TableName)
			pk, err := m.pkValue(table, c.Key)
			if err != nil {
				return nil, err
			}
			ok, err := evalCondition(c.ConditionExpression, c.ExpressionAttributeNames, c.ExpressionAttributeValues, m.tables[table][pk])
			if err != nil {
				return nil, err
			}
			if !ok {
				reasons[i] = types.CancellationReason{Code: ptr("ConditionalCheckFailed")}
				failed = true
			}
		default:
			return nil, errors.New("awsmock: only Put and ConditionCheck are supported in transactions")
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             ptr("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, w := range writes {
		m.tables[w.table][w.pk] = clone(w.item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (m *Dynamo) pkValue(table string, item map[string]types.AttributeValue) (string, error) {
	attr, ok := m.keys[table]
	if !ok {
		return "", fmt.Errorf("awsmock: unknown table %q", table)
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("awsmock: item has no string key %q", attr)
	}
	return v.Value, nil
}

// evalCondition understands clauses joined by AND:
// attribute_exists(x), attribute_not_exists(x) and "x = :v".
func evalCondition(expr *string, names map[string]string, values map[string]types.AttributeValue, existing map[string]types.AttributeValue) (bool, error) {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return true, nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
			name := resolveName(clause[len("attribute_not_exists("):len(clause)-1], names)
			if _, ok := existing[name]; ok {
				return false, nil
			}
		case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
			name := resolveName(clause[len("attribute_exists("):len(clause)-1], names)
			if _, ok := existing[name]; !ok {
				return false, nil
			}
		case strings.Contains(clause, " = "):
			parts := strings.SplitN(clause, " = ", 2)
			name := resolveName(strings.TrimSpace(parts[0]), names)
			want, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("awsmock: missing value in condition %q", clause)
			}
			got, ok := existing[name]
			if !ok || !equalAttr(got, want) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("awsmock: unsupported condition %q", clause)
		}
	}
	return true, nil
}

func equalAttr(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func resolveName(name string, names map[string]string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") {
		if n, ok := names[name]; ok {
			return n
		}
	}
	return name
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string { return &s }
