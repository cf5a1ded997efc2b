// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build integration

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/pkg/errutil"
)

var _ = Describe("PostgreSQL backend", func() {
	authFlows(postgresStack)
})

var _ = Describe("Redis backend", func() {
	authFlows(redisStack)
})

func authFlows(build func() *stack) {
	var (
		ctx context.Context
		s   *stack
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = build()
	})

	Describe("Authentication", func() {
		It("returns the stored identity for valid credentials", func() {
			identity, err := s.svc.Authenticate(ctx, "alice", "wonderland")
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.Username).To(Equal("alice"))
			Expect(identity.Role).To(Equal(access.RoleEditor))
		})

		It("counts unknown users and wrong passwords against the bucket", func() {
			_, err := s.svc.Authenticate(ctx, "bob", "wrong")
			Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidPassword))
			_, err = s.svc.Authenticate(ctx, "mallory", "whatever")
			Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidUser))

			n, err := s.attempts.Get(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">=", 1))
		})

		It("refuses disabled accounts even with the right password", func() {
			_, err := s.svc.Authenticate(ctx, "carol", "retired")
			Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidUser))
		})

		It("locks a bucket after five failures without counting further attempts", func() {
			for range auth.DefaultLockoutThreshold {
				_, err := s.svc.Authenticate(ctx, "bob", "wrong")
				Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidPassword))
			}

			_, err := s.svc.Authenticate(ctx, "bob", "builder")
			Expect(errutil.Code(err)).To(Equal(auth.CodeAccountLocked))
			Expect(auth.IsRetryable(err)).To(BeFalse())

			n, err := s.attempts.Get(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(auth.DefaultLockoutThreshold))

			Expect(s.attempts.Reset(ctx, "bob")).To(Succeed())
			_, err = s.svc.Authenticate(ctx, "bob", "builder")
			Expect(err).NotTo(HaveOccurred())
		})

		It("evaluates no more concurrent guesses than the threshold", func() {
			var (
				wg        sync.WaitGroup
				evaluated atomic.Int32
			)
			for range 20 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := s.svc.Authenticate(ctx, "bob", "wrong")
					if errutil.Code(err) == auth.CodeInvalidPassword {
						evaluated.Add(1)
					}
				}()
			}
			wg.Wait()

			Expect(evaluated.Load()).To(Equal(int32(auth.DefaultLockoutThreshold)))
			n, err := s.attempts.Get(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(auth.DefaultLockoutThreshold))
		})

		It("leaves the counter alone when the caller cancels", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := s.svc.Authenticate(cancelled, "bob", "wrong")
			Expect(errutil.Code(err)).To(Equal(auth.CodeCancelled))

			n, err := s.attempts.Get(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})

	Describe("Sessions", func() {
		It("creates, validates and destroys a session", func() {
			_, token, session, err := s.svc.Login(ctx, "bob", "builder")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.TTL()).To(Equal(auth.DefaultSessionTTL))

			got, err := s.svc.ValidateSession(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Subject).To(Equal("bob"))
			Expect(got.ID).To(Equal(session.ID))

			Expect(s.svc.DestroySession(ctx, token)).To(Succeed())
			_, err = s.svc.ValidateSession(ctx, token)
			Expect(errutil.Code(err)).To(Equal(auth.CodeSessionInvalid))

			Expect(s.svc.DestroySession(ctx, token)).To(Succeed(), "destroy is idempotent")
		})

		It("keeps sessions for the same user independent", func() {
			_, first, _, err := s.svc.Login(ctx, "alice", "wonderland")
			Expect(err).NotTo(HaveOccurred())
			_, second, _, err := s.svc.Login(ctx, "alice", "wonderland")
			Expect(err).NotTo(HaveOccurred())
			Expect(first).NotTo(Equal(second))

			Expect(s.svc.DestroySession(ctx, first)).To(Succeed())
			_, err = s.svc.ValidateSession(ctx, second)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects tokens it never issued", func() {
			_, err := s.svc.ValidateSession(ctx, "not-a-token")
			Expect(errutil.Code(err)).To(Equal(auth.CodeSessionInvalid))
		})
	})

	Describe("Actions", func() {
		It("enforces the role table against the data store", func() {
			written, err := s.svc.HandleAction(ctx, auth.ActionRequest{Username: "alice", Action: "write", Value: "hello"})
			Expect(err).NotTo(HaveOccurred())
			Expect(written.Records).To(HaveLen(1))
			id := written.Records[0].ID

			read, err := s.svc.HandleAction(ctx, auth.ActionRequest{Username: "bob", Action: "read"})
			Expect(err).NotTo(HaveOccurred())
			Expect(read.Records).To(HaveLen(1))
			Expect(read.Records[0].Owner).To(Equal("alice"))

			_, err = s.svc.HandleAction(ctx, auth.ActionRequest{Username: "bob", Action: "write", Value: "nope"})
			Expect(errutil.Code(err)).To(Equal(auth.CodePermissionDenied))

			_, err = s.svc.HandleAction(ctx, auth.ActionRequest{Username: "alice", Action: "delete", RecordID: id})
			Expect(errutil.Code(err)).To(Equal(auth.CodePermissionDenied))

			deleted, err := s.svc.HandleAction(ctx, auth.ActionRequest{Username: "admin", Action: "delete", RecordID: id})
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted.Affected).To(Equal(int64(1)))
		})

		It("distinguishes unknown actions from denied ones", func() {
			_, err := s.svc.HandleAction(ctx, auth.ActionRequest{Username: "admin", Action: "launch"})
			Expect(errutil.Code(err)).To(Equal(auth.CodeUnknownAction))

			_, err = s.svc.HandleAction(ctx, auth.ActionRequest{Username: "bob", Action: "launch"})
			Expect(errutil.Code(err)).To(Equal(auth.CodePermissionDenied))

			_, err = s.svc.HandleAction(ctx, auth.ActionRequest{Username: "ghost", Action: "read"})
			Expect(errutil.Code(err)).To(Equal(auth.CodeUserNotFound))
		})
	})
}
