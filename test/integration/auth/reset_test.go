// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

//go:build integration

package auth_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/web"
)

var _ = Describe("Password reset", func() {
	var ada *auth.User

	BeforeEach(func() {
		ada = createUser("ada@example.com", "correct horse", true)
	})

	requestReset := func() string {
		out := post(web.PathForgotPassword, web.EmailRequest{Email: "ada@example.com"}, nil, "")
		ExpectWithOffset(1, out.Typename).To(Equal("Response"))
		token := env.Mailer.ResetToken()
		ExpectWithOffset(1, token).NotTo(BeEmpty())
		return token
	}

	It("sets the new password and signs the account out everywhere", func() {
		_, session := login("ada@example.com", "correct horse")
		token := requestReset()

		verify := post(web.PathVerifyResetToken, web.ResetTokenRequest{Token: token}, nil, "")
		Expect(verify.Typename).To(Equal("VerifiedResetToken"))

		reset := post(web.PathResetPassword, web.ResetPasswordRequest{
			Token: token, Password: "battery staple", ConfirmPassword: "battery staple",
		}, nil, "")
		Expect(reset.Typename).To(Equal("Response"))
		Expect(env.Mailer.Last().Subject).To(Equal("Your password was changed"))

		_, err := env.Sessions.GetWithUser(env.ctx, session.SessionID)
		Expect(err).To(MatchError(auth.ErrNotFound))

		login("ada@example.com", "battery staple")
		old := post(web.PathLogin, web.LoginRequest{Email: "ada@example.com", Password: "correct horse"}, nil, "")
		Expect(old.Typename).To(Equal("NotAllowedError"))
	})

	It("accepts a token only once", func() {
		token := requestReset()
		body := web.ResetPasswordRequest{Token: token, Password: "battery staple", ConfirmPassword: "battery staple"}

		Expect(post(web.PathResetPassword, body, nil, "").Typename).To(Equal("Response"))
		Expect(post(web.PathResetPassword, body, nil, "").Typename).To(Equal("NotAllowedError"))
	})

	It("invalidates the previous token when a new one is requested", func() {
		first := requestReset()
		second := requestReset()

		Expect(post(web.PathVerifyResetToken, web.ResetTokenRequest{Token: first}, nil, "").Typename).
			To(Equal("NotAllowedError"))
		Expect(post(web.PathVerifyResetToken, web.ResetTokenRequest{Token: second}, nil, "").Typename).
			To(Equal("VerifiedResetToken"))
	})

	It("expires the token when its timer fires", func() {
		token := requestReset()

		Expect(env.Scheduler.FireAll()).To(Equal(1))

		Expect(post(web.PathVerifyResetToken, web.ResetTokenRequest{Token: token}, nil, "").Typename).
			To(Equal("NotAllowedError"))
		u, err := env.Users.GetByID(env.ctx, ada.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Reset).To(BeNil())
	})

	It("sweeps tokens whose deadline passed without a timer", func() {
		Expect(env.Users.SetResetToken(env.ctx, ada.ID, auth.ResetToken{
			TokenHash: auth.HashToken("left-over-token"),
			Handle:    "lost-timer",
			ExpiresAt: time.Now().Add(-time.Minute),
		})).To(Succeed())

		n, err := env.Resets.SweepExpired(env.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		u, err := env.Users.GetByID(env.ctx, ada.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Reset).To(BeNil())
	})
})

var _ = Describe("Generated passwords", func() {
	It("issues a temporary password to an unregistered account", func() {
		createUser("new@example.com", "placeholder", false)

		out := post(web.PathGeneratePassword, web.EmailRequest{Email: "new@example.com"}, nil, "")
		Expect(out.Typename).To(Equal("Response"))
		Expect(env.Mailer.Last().Subject).To(Equal("Your temporary password"))

		old := post(web.PathLogin, web.LoginRequest{Email: "new@example.com", Password: "placeholder"}, nil, "")
		Expect(old.Typename).To(Equal("NotAllowedError"))
	})

	It("refuses a registered account", func() {
		createUser("ada@example.com", "correct horse", true)

		out := post(web.PathGeneratePassword, web.EmailRequest{Email: "ada@example.com"}, nil, "")
		Expect(out.Typename).To(Equal("RegistrationError"))
	})
})
