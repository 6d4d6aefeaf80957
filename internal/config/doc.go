// Package config loads the courier CLI configuration.
//
// Configuration is read from config.yaml in a single directory. The default
// directory is ~/.config/courier; --config-path or COURIER_CONFIG_DIR select
// another one. A missing file yields a single unauthenticated "default"
// profile.
//
// # Configuration Structure
//
//	defaultProfile: github
//	logLevel: info
//	telemetry: false
//	profiles:
//	  github:
//	    type: oauth2                      # none, oauth1 or oauth2
//	    baseURL: https://api.github.com
//	    clientID: abc
//	    clientSecret: xyz                 # or COURIER_CLIENT_SECRET
//	    authorizationURI: https://github.com/login/oauth/authorize
//	    tokenURL: https://github.com/login/oauth/access_token
//	    redirectURL: http://127.0.0.1:0/callback
//	    authorizeMode: LocalhostServer
//	    scopes: [repo, read:user]
//	    usePKCE: true
//	    additionalAttributes:             # appended in file order
//	      allow_signup: "false"
//	    retries: 3
//	    rateLimit: 5
//	    timeout: 30s
//
// # Environment
//
// COURIER_PROFILE, COURIER_LOG_LEVEL, COURIER_TOKEN_DIR and
// COURIER_CLIENT_SECRET override the corresponding file settings. Invalid
// files are reported as a ConfigurationError whose Details list every
// ValidationError.
package config
