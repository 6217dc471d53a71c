// Package engine dispatches authenticated requests to Cognitive Services.
//
// An Engine owns a Credentials store holding the subscription key and the
// bearer token issued for it. Every call made through Run or Go first
// ensures a valid token is cached, renewing it against the token endpoint when
// it has expired, and then sends the request built by a Cog with the token
// attached.
//
// Concurrent callers that find the token expired share a single renewal:
// one of them starts it and every caller waits for the same result.
//
//	creds := engine.NewCredentials(engine.SubscriptionKey("abc123"))
//	eng := engine.New(creds, utils.NewDefaultHTTPClient())
//	text, err := engine.Run(ctx, eng, translation.TranslateRequest{
//	    Text: "Hello",
//	    From: "en",
//	    To:   "de",
//	})
package engine
