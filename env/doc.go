// Package env models the environment variables vmc sends to the cloud
// controller and validates them before any request is built.
//
// The controller stores an application's environment as a list of
// KEY=VALUE strings in the "env" field of the app record. This package
// converts between that list and EnvPair values:
//
//	pair, err := env.ValidateEnvToken("DATABASE_URL=postgres://db/app")
//	if err != nil {
//		// err is a *env.ValidationError; display it and stop
//	}
//	app.Env = env.Upsert(app.Env, pair)
//
// # Call Shapes
//
// A variable can be given as one combined token (ValidateEnvToken) or as a
// separate key and value (ValidateEnvKey). Both shapes apply the same rules
// and differ only in the message reported for an empty key.
//
// # Key Rules
//
//   - keys must not be empty
//   - keys starting with VCAP_ or VMC_ are reserved by the runtime
//   - keys may only contain A-Z, a-z, 0-9 and underscore
//
// The reserved prefix rule is checked before the character rule, so
// "VMC_BAD.KEY" reports the reserved prefix.
//
// # Dotenv Files
//
// ParseKeyValueFormat and LoadFile read KEY=value files (one per line,
// comments and blank lines skipped) into ordered pairs.
package env
