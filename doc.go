// Package tzcall provides the value and receipt transcoding core of a
// command line tool that deploys and calls Michelson smart contracts
// through the octez node client.
//
// The package converts ergonomic JSON-shaped values into Micheline, the
// AST consumed by the contract virtual machine, and recovers structured
// records from the human readable receipts printed by the client.
//
// # Encoding
//
// Build or parse a type descriptor and encode a native value against it:
//
//	t := tzcall.MustParseType("pair (address %to) (mutez %amount)")
//	v := tzcall.MustValue([]any{"tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb", "1.5tz"})
//
//	node, err := tzcall.Encode(t, v)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tzcall.FormatNode(node)) // Pair "tz1VS..." 1500000
//
// Values follow a few conventions:
//
//   - map and big_map values are lists of {key, value} objects, encoded in
//     input order without sorting or deduplication
//   - or values are {kind: "left"|"right", value} objects
//   - option values are null for None
//   - mutez accepts "2tz" and "150utz" shorthands
//   - timestamp accepts Unix seconds or calendar strings
//
// Every encoding failure is an *EncodingError wrapping one of the sentinel
// errors, carrying the offending type and value.
//
// # Contracts and Batches
//
// A Contract knows the entrypoints of its parameter type, and Invoke
// encodes a call argument against the selected entrypoint:
//
//	token := tzcall.NewContract(addr, paramType)
//	call := token.MustInvoke("transfer", []any{from, to, 100})
//
//	batch := tzcall.NewBatch()
//	batch.Add(call)
//	payload, err := batch.JSON() // input of "multiple transfers"
//
// # Receipts
//
// The Extract functions each return one optional field of a receipt and
// never fail. ParseTransaction and ParseOrigination assemble them into
// records. ExtractEvents recovers contract events, and
// ParseInterpretationTrace reads the output of "run script", returning a
// *ParseError when a required section is absent.
package tzcall
