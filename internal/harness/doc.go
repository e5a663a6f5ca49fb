// Package harness provides conformance testing for relq compilations.
//
// A scenario names a catalog, seeds an in-memory SQLite database, and runs
// a list of query documents through the engine. Each step checks the
// rendered text, and SQLite steps may also execute the statement and check
// the rows it returns.
//
// # Scenario Format
//
//	name: nullable_filters
//	description: "Comparisons against nullable columns"
//	dialect: sqlite
//	catalog:
//	  - catalog.cue
//	seed:
//	  - table: orders
//	    rows:
//	      - [1, null, 10]
//	  - table: flags
//	    combinations: {int: [0, 1]}
//	steps:
//	  - name: not_equal
//	    query:
//	      select:
//	        project: [o.id]
//	        from: [{table: orders, as: o}]
//	        where: "(<> o.customer 1)"
//	    expect:
//	      sql_contains: ["IS NULL"]
//	      rows: [[1]]
//
// Queries use the querydoc format, inline or through query_file. Step params
// override the values the document declares. Expectations:
//
//   - sql: exact statement text
//   - sql_contains: fragments of the text
//   - error: fragment of the expected compilation error
//   - cacheable, cache_hit: command cache behavior
//   - bindings: bound parameter names in placeholder order
//   - rows, row_count: execution results (sqlite only; ordered: true to
//     compare in order)
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory database and sequential compile IDs, so
// the same scenario always produces the same snapshot. Steps that share a
// dialect share an engine and its command cache.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/nulls.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
