// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

//go:build integration

package auth_test

import (
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/web"
)

var _ = Describe("Sessions", func() {
	BeforeEach(func() {
		createUser("ada@example.com", "correct horse", true)
	})

	Describe("login", func() {
		It("issues three HttpOnly cookies and a session row", func() {
			out, user := login("ada@example.com", "correct horse")

			Expect(out.Code).To(Equal(http.StatusOK))
			Expect(out.Cookies).To(HaveLen(3))
			for _, c := range out.Cookies {
				Expect(c.HttpOnly).To(BeTrue())
			}
			Expect(user.AccessToken).NotTo(BeEmpty())

			rec, err := env.Sessions.GetWithUser(env.ctx, user.SessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.User.Email).To(Equal("ada@example.com"))
		})

		It("refuses a wrong password without saying which part was wrong", func() {
			wrong := post(web.PathLogin, web.LoginRequest{Email: "ada@example.com", Password: "battery staple"}, nil, "")
			unknown := post(web.PathLogin, web.LoginRequest{Email: "bob@example.com", Password: "battery staple"}, nil, "")

			Expect(wrong.Typename).To(Equal("NotAllowedError"))
			Expect(unknown.Typename).To(Equal("NotAllowedError"))
			Expect(wrong.Data).To(MatchJSON(unknown.Data))
		})
	})

	Describe("rotation", func() {
		It("replaces the credential on every verify", func() {
			first, user := login("ada@example.com", "correct horse")

			second := post(web.PathVerifySession, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, "")
			Expect(second.Typename).To(Equal("VerifiedSession"))
			Expect(second.Cookies).To(HaveLen(3))

			third := post(web.PathRefreshToken, web.SessionRequest{SessionID: user.SessionID}, second.Cookies, "")
			Expect(third.Typename).To(Equal("AccessToken"))
		})

		It("revokes the session and notifies the owner when an old credential is replayed", func() {
			first, user := login("ada@example.com", "correct horse")
			second := post(web.PathRefreshToken, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, "")
			Expect(second.Typename).To(Equal("AccessToken"))

			replay := post(web.PathRefreshToken, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, "")
			Expect(replay.Typename).To(Equal("NotAllowedError"))

			_, err := env.Sessions.GetWithUser(env.ctx, user.SessionID)
			Expect(err).To(MatchError(auth.ErrNotFound))
			Expect(env.Mailer.Last().Subject).To(Equal("Suspicious sign-in activity"))

			legit := post(web.PathRefreshToken, web.SessionRequest{SessionID: user.SessionID}, second.Cookies, "")
			Expect(legit.Typename).To(Equal("UnknownError"))
		})

		It("lets exactly one of several concurrent refreshes win", func() {
			first, user := login("ada@example.com", "correct horse")

			const racers = 8
			kinds := make([]string, racers)
			var wg sync.WaitGroup
			for i := range racers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					kinds[i] = post(web.PathRefreshToken, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, "").Typename
				}()
			}
			wg.Wait()

			winners := 0
			for _, k := range kinds {
				if k == "AccessToken" {
					winners++
					continue
				}
				Expect(k).To(BeElementOf("NotAllowedError", "UnknownError"))
			}
			Expect(winners).To(Equal(1))
		})
	})

	Describe("logout", func() {
		It("requires an access token", func() {
			first, user := login("ada@example.com", "correct horse")

			out := post(web.PathLogout, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, "")
			Expect(out.Typename).To(Equal("AuthenticationError"))
		})

		It("deletes the session and clears the cookies", func() {
			first, user := login("ada@example.com", "correct horse")

			out := post(web.PathLogout, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, user.AccessToken)
			Expect(out.Typename).To(Equal("Response"))
			for _, c := range out.Cookies {
				Expect(c.Value).To(BeEmpty())
			}

			_, err := env.Sessions.GetWithUser(env.ctx, user.SessionID)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("answers a repeated logout with UnknownError", func() {
			first, user := login("ada@example.com", "correct horse")

			out := post(web.PathLogout, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, user.AccessToken)
			Expect(out.Typename).To(Equal("Response"))

			again := post(web.PathLogout, web.SessionRequest{SessionID: user.SessionID}, first.Cookies, user.AccessToken)
			Expect(again.Code).To(Equal(http.StatusOK))
			Expect(again.Typename).To(Equal("UnknownError"))
		})

		It("refuses to close another account's session", func() {
			createUser("bob@example.com", "battery staple", true)
			adaCookies, ada := login("ada@example.com", "correct horse")
			_, bob := login("bob@example.com", "battery staple")

			out := post(web.PathLogout, web.SessionRequest{SessionID: ada.SessionID}, adaCookies.Cookies, bob.AccessToken)
			Expect(out.Typename).To(Equal("NotAllowedError"))

			_, err := env.Sessions.GetWithUser(env.ctx, ada.SessionID)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
