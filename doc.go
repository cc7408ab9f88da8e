// FILE: lixenwraith/propcfg/doc.go

// Package propcfg resolves the runtime values of declared properties from a
// prioritized chain of external sources, coerces them to the declared Go type,
// writes them in place, and notifies observers of every change or failure.
//
// Features:
//   - Explicit declaration of package-level (Static) and struct-field (Field) properties
//   - Fixed resolution chain: environment, process properties, --arguments, named constants, literals
//   - Coercion of strings, numbers and structured values to the exact declared type
//   - Callback registration at property, instance, type, namespace and global scope
//   - Append-only History of every applied change
//   - Remote key index consumed by the remote package's HTTP surface
//   - Properties files in TOML, YAML or JSON, optionally watched for changes
//   - Structured logging callbacks (zap) and Prometheus event counters
//
// Quick Start:
//
//	var maxVehicles = 100
//
//	var (
//	    schema   = propcfg.NewSchema()
//	    settings = schema.Namespace("traffic").Type("Settings")
//	    _        = propcfg.Static(settings, "maxVehicles", &maxVehicles)
//	)
//
//	engine := propcfg.NewBuilder().WithArgsProperties(os.Args[1:]).MustBuild()
//	cbs := propcfg.LogHandlers(logger)
//	if err := engine.ConfigureTypeWith(cbs, os.Args[1:], settings); err != nil {
//	    log.Fatal(err) // only a failing failure handler surfaces here
//	}
//
// Resolution order (first found wins):
//  1. Environment variable (MAX_VEHICLES=150)
//  2. Process property (-DmaxVehicles=150 or -Dtraffic.Settings.maxVehicles=150)
//  3. Command-line argument (--maxVehicles=150)
//  4. Named constant (DEFAULT_MAX_VEHICLES declared with Constant)
//  5. Literal (WithLiteral("150"))
//
// Thread Safety:
// Registration, lookup and History are guarded by mutexes. Configuring the
// same property from two goroutines at once is last-writer-wins. Callbacks
// run synchronously on the configuring goroutine.
package propcfg
