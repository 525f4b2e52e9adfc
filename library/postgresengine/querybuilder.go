package postgresengine

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/PeiPei233/Library-Management-System/library"
)

// sortColumnName maps the whitelisted sort columns to their column names.
// Caller input never selects a column directly; anything outside the
// whitelist cannot be expressed in a library.BookQuery.
func sortColumnName(column library.SortColumn) string {
	switch column {
	case library.SortByCategory:
		return colCategory
	case library.SortByTitle:
		return colTitle
	case library.SortByPress:
		return colPress
	case library.SortByPublishYear:
		return colPublishYear
	case library.SortByAuthor:
		return colAuthor
	case library.SortByPrice:
		return colPrice
	case library.SortByStock:
		return colStock
	default:
		return colBookID
	}
}

// buildBookQuerySQL translates a library.BookQuery into a prepared SELECT
// over the book table. All filter values travel as placeholder args, and
// the sort clause ends with book_id ASC as a deterministic tie-break
// whenever the primary sort column is not the identifier itself.
func (l Library) buildBookQuerySQL(query library.BookQuery) (sqlQueryString, sqlArgs, error) {
	stmt := l.builder().
		From(l.bookTableName).
		Select(colBookID, colCategory, colTitle, colPress, colPublishYear, colAuthor, colPrice, colStock).
		Where(bookQueryExpressions(query)...).
		Order(bookQueryOrdering(query)...).
		Prepared(true)

	sqlQuery, args, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(library.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

func bookQueryExpressions(query library.BookQuery) []goqu.Expression {
	expressions := make([]goqu.Expression, 0)

	if category, ok := query.Category(); ok {
		expressions = append(expressions, goqu.C(colCategory).Eq(category))
	}

	if title, ok := query.TitleContains(); ok {
		expressions = append(expressions, goqu.C(colTitle).Like("%"+title+"%"))
	}

	if press, ok := query.PressContains(); ok {
		expressions = append(expressions, goqu.C(colPress).Like("%"+press+"%"))
	}

	if author, ok := query.AuthorContains(); ok {
		expressions = append(expressions, goqu.C(colAuthor).Like("%"+author+"%"))
	}

	if minYear, ok := query.MinPublishYear(); ok {
		expressions = append(expressions, goqu.C(colPublishYear).Gte(minYear))
	}

	if maxYear, ok := query.MaxPublishYear(); ok {
		expressions = append(expressions, goqu.C(colPublishYear).Lte(maxYear))
	}

	if minPrice, ok := query.MinPrice(); ok {
		expressions = append(expressions, goqu.C(colPrice).Gte(minPrice))
	}

	if maxPrice, ok := query.MaxPrice(); ok {
		expressions = append(expressions, goqu.C(colPrice).Lte(maxPrice))
	}

	return expressions
}

func bookQueryOrdering(query library.BookQuery) []exp.OrderedExpression {
	column, order, ok := query.Sort()
	if !ok {
		return []exp.OrderedExpression{goqu.I(colBookID).Asc()}
	}

	primary := goqu.I(sortColumnName(column)).Asc()
	if order == library.Desc {
		primary = goqu.I(sortColumnName(column)).Desc()
	}

	if column == library.SortByBookID {
		return []exp.OrderedExpression{primary}
	}

	return []exp.OrderedExpression{primary, goqu.I(colBookID).Asc()}
}
