// Package client is the Aguayo marketplace Go SDK.
//
// It covers the full account lifecycle: creating or logging into an account,
// walking the signup wizard, and working with profiles, the service catalog,
// and publications.
//
// # Logging in
//
//	c := client.MustNew("https://api.aguayo.app")
//	sess, err := c.Login(ctx, "ana@example.com", "password123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The session token is stored on the client and attached to every later
// request.
//
// # Completing signup
//
// The wizard is stateless server-side: each step returns a draft token that
// the next step must carry.
//
//	draft, _ := c.SelectRole(ctx, "PROVIDER")
//	draft, _ = c.SubmitPersonal(ctx, draft, client.PersonalData{
//	    FullName:    "Juan Soto",
//	    BirthDate:   "1990-05-02",
//	    PhoneNumber: "+59170000000",
//	    Location:    "Cochabamba",
//	    ServiceIDs:  []string{serviceID},
//	})
//	profile, err := c.CompleteSignup(ctx, draft, client.SignupFiles{
//	    ProfileImage: "me.jpg",
//	    IDFront:      "id-front.jpg",
//	    IDBack:       "id-back.jpg",
//	})
//
// A *StepRequired error means an earlier step is missing; ErrAlreadyOnboarded
// means the account already has a profile.
//
// # Browsing and publishing
//
//	services, _ := c.ListServices(ctx)
//	pub, err := c.CreatePublication(ctx, client.NewPublication{
//	    Title:       "Limpieza profunda",
//	    Description: "Cocina, baños y dormitorios",
//	    ServiceID:   services[0].ID,
//	    Price:       &price,
//	    PriceType:   "FIXED",
//	})
//
// Add catalog caching with WithCatalogCacheTTL to avoid repeated lookups:
//
//	c := client.MustNew(baseURL, client.WithCatalogCacheTTL(time.Minute))
package client
