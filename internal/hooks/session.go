package hooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/OUGC-Network/NewPoints-sub000/internal/income"
	"github.com/OUGC-Network/NewPoints-sub000/internal/ledger"
	"github.com/OUGC-Network/NewPoints-sub000/internal/platform"
	"github.com/OUGC-Network/NewPoints-sub000/internal/settings"
)

// Session is one unit of work. The host creates a Session per incoming
// request (or task invocation), calls event hooks on it synchronously,
// and calls Flush exactly once at the end. Buffered deltas for the same
// user coalesce into one durable write at flush time; abandoning a
// session without flushing has no durable effect.
type Session struct {
	engine    *Engine
	ledger    *ledger.Ledger
	precision int32
}

// Begin opens a unit of work. The precision setting is resolved once per
// session so every rounding inside it agrees.
func (e *Engine) Begin(ctx context.Context) *Session {
	precision := e.settings.Precision(ctx)
	return &Session{
		engine:    e,
		ledger:    ledger.New(e.balances, precision),
		precision: precision,
	}
}

// Flush ends the unit of work, writing one coalesced update per user.
func (s *Session) Flush(ctx context.Context) error {
	return s.ledger.Flush(ctx)
}

// award buffers base (already summed with any character bonus) for a user
// under the forum/group rate context, skipping entirely on a zero rate or
// zero amount per the calculator's short-circuit contract.
func (s *Session) award(ctx context.Context, uid int64, base decimal.Decimal, fid, gid int64, opts ...ledger.Option) error {
	if !s.engine.enabled(ctx) {
		return nil
	}

	forumRate := decimal.NewFromInt(1)
	if fid != 0 {
		forumRate = s.engine.rules.ForumRate(ctx, fid)
	}
	groupRate := s.engine.rules.GroupRate(ctx, gid)

	if income.ShouldSkip(base, forumRate, groupRate) {
		return nil
	}

	opts = append(opts, ledger.WithForumRate(forumRate), ledger.WithGroupRate(groupRate))
	return s.ledger.Add(ctx, uid, base, opts...)
}

// postAward is the full value of one post: the base per-post amount plus
// the character bonus on its visible text.
func (s *Session) postAward(ctx context.Context, message string) decimal.Decimal {
	base := s.engine.settings.Decimal(ctx, settings.IncomeNewPost, decimal.Zero)
	perChar := s.engine.settings.Decimal(ctx, settings.IncomePerChar, decimal.Zero)
	minChar := s.engine.settings.Int(ctx, settings.IncomeMinChar, 0)
	return base.Add(income.CharacterBonus(message, minChar, perChar))
}

// NewPost credits the author for a new post: per-post base plus the
// character bonus, both under the post's forum rate and the author's
// primary group rate.
func (s *Session) NewPost(ctx context.Context, post *platform.Post) error {
	return s.award(ctx, post.AuthorUid, s.postAward(ctx, post.Message), post.Fid, post.AuthorGid)
}

// EditPost settles the marginal character-count change of an edit: the
// signed difference between new and old visible lengths, applied as an
// immediate write (a debit when the edit shrank the post).
func (s *Session) EditPost(ctx context.Context, oldMessage string, post *platform.Post) error {
	perChar := s.engine.settings.Decimal(ctx, settings.IncomePerChar, decimal.Zero)
	minChar := s.engine.settings.Int(ctx, settings.IncomeMinChar, 0)
	bonus := income.EditCharacterBonus(oldMessage, post.Message, minChar, perChar)
	return s.award(ctx, post.AuthorUid, bonus, post.Fid, post.AuthorGid, ledger.Immediate())
}

// DeletePost reverses what the post earned when it was created.
func (s *Session) DeletePost(ctx context.Context, post *platform.Post) error {
	return s.award(ctx, post.AuthorUid, s.postAward(ctx, post.Message).Neg(), post.Fid, post.AuthorGid)
}

// RestorePost re-credits a previously deleted post.
func (s *Session) RestorePost(ctx context.Context, post *platform.Post) error {
	return s.award(ctx, post.AuthorUid, s.postAward(ctx, post.Message), post.Fid, post.AuthorGid)
}

// ApprovePost credits a post entering visibility.
func (s *Session) ApprovePost(ctx context.Context, post *platform.Post) error {
	return s.award(ctx, post.AuthorUid, s.postAward(ctx, post.Message), post.Fid, post.AuthorGid)
}

// UnapprovePost reverses an approved post's earnings.
func (s *Session) UnapprovePost(ctx context.Context, post *platform.Post) error {
	return s.award(ctx, post.AuthorUid, s.postAward(ctx, post.Message).Neg(), post.Fid, post.AuthorGid)
}

// ApprovePosts is the batch form of ApprovePost. Entries for the same
// author coalesce through the shared session buffer.
func (s *Session) ApprovePosts(ctx context.Context, posts []*platform.Post) error {
	for _, post := range posts {
		if err := s.ApprovePost(ctx, post); err != nil {
			return err
		}
	}
	return nil
}

// UnapprovePosts is the batch form of UnapprovePost.
func (s *Session) UnapprovePosts(ctx context.Context, posts []*platform.Post) error {
	for _, post := range posts {
		if err := s.UnapprovePost(ctx, post); err != nil {
			return err
		}
	}
	return nil
}

// DeletePosts is the batch form of DeletePost.
func (s *Session) DeletePosts(ctx context.Context, posts []*platform.Post) error {
	for _, post := range posts {
		if err := s.DeletePost(ctx, post); err != nil {
			return err
		}
	}
	return nil
}

// resolvePosts looks up each post through the host platform. Moderation
// surfaces hand over ids, not full post records.
func (s *Session) resolvePosts(ctx context.Context, pids []int64) ([]*platform.Post, error) {
	if s.engine.reader == nil {
		return nil, errors.New("no platform reader configured")
	}
	posts := make([]*platform.Post, 0, len(pids))
	for _, pid := range pids {
		post, err := s.engine.reader.Post(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve post %d: %w", pid, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// ApprovePostIDs is ApprovePosts for callers that only hold post ids.
func (s *Session) ApprovePostIDs(ctx context.Context, pids []int64) error {
	posts, err := s.resolvePosts(ctx, pids)
	if err != nil {
		return err
	}
	return s.ApprovePosts(ctx, posts)
}

// UnapprovePostIDs is UnapprovePosts for callers that only hold post ids.
func (s *Session) UnapprovePostIDs(ctx context.Context, pids []int64) error {
	posts, err := s.resolvePosts(ctx, pids)
	if err != nil {
		return err
	}
	return s.UnapprovePosts(ctx, posts)
}

// DeletePostIDs is DeletePosts for callers that only hold post ids.
func (s *Session) DeletePostIDs(ctx context.Context, pids []int64) error {
	posts, err := s.resolvePosts(ctx, pids)
	if err != nil {
		return err
	}
	return s.DeletePosts(ctx, posts)
}

// threadAward is the per-thread base plus the character bonus on the
// opening post's text.
func (s *Session) threadAward(ctx context.Context, message string) decimal.Decimal {
	base := s.engine.settings.Decimal(ctx, settings.IncomeNewThread, decimal.Zero)
	perChar := s.engine.settings.Decimal(ctx, settings.IncomePerChar, decimal.Zero)
	minChar := s.engine.settings.Int(ctx, settings.IncomeMinChar, 0)
	return base.Add(income.CharacterBonus(message, minChar, perChar))
}

// NewThread credits the author for a new thread, opening post included.
func (s *Session) NewThread(ctx context.Context, thread *platform.Thread, message string) error {
	return s.award(ctx, thread.AuthorUid, s.threadAward(ctx, message), thread.Fid, thread.AuthorGid)
}

// DeleteThread reverses the thread's earnings.
func (s *Session) DeleteThread(ctx context.Context, thread *platform.Thread, message string) error {
	return s.award(ctx, thread.AuthorUid, s.threadAward(ctx, message).Neg(), thread.Fid, thread.AuthorGid)
}

// RestoreThread re-credits a previously deleted thread.
func (s *Session) RestoreThread(ctx context.Context, thread *platform.Thread, message string) error {
	return s.award(ctx, thread.AuthorUid, s.threadAward(ctx, message), thread.Fid, thread.AuthorGid)
}

// ApproveThread credits a thread entering visibility.
func (s *Session) ApproveThread(ctx context.Context, thread *platform.Thread, message string) error {
	return s.award(ctx, thread.AuthorUid, s.threadAward(ctx, message), thread.Fid, thread.AuthorGid)
}

// UnapproveThread reverses an approved thread's earnings.
func (s *Session) UnapproveThread(ctx context.Context, thread *platform.Thread, message string) error {
	return s.award(ctx, thread.AuthorUid, s.threadAward(ctx, message).Neg(), thread.Fid, thread.AuthorGid)
}

// NewPoll credits a poll's creator.
func (s *Session) NewPoll(ctx context.Context, uid, fid, gid int64) error {
	base := s.engine.settings.Decimal(ctx, settings.IncomeNewPoll, decimal.Zero)
	return s.award(ctx, uid, base, fid, gid)
}

// DeletePoll reverses a poll's creation credit.
func (s *Session) DeletePoll(ctx context.Context, uid, fid, gid int64) error {
	base := s.engine.settings.Decimal(ctx, settings.IncomeNewPoll, decimal.Zero)
	return s.award(ctx, uid, base.Neg(), fid, gid)
}

// PollVote credits a voter.
func (s *Session) PollVote(ctx context.Context, uid, fid, gid int64) error {
	base := s.engine.settings.Decimal(ctx, settings.IncomePerVote, decimal.Zero)
	return s.award(ctx, uid, base, fid, gid)
}

// PrivateMessageSent credits the sender. No forum context applies.
func (s *Session) PrivateMessageSent(ctx context.Context, uid, gid int64) error {
	base := s.engine.settings.Decimal(ctx, settings.IncomePMSent, decimal.Zero)
	return s.award(ctx, uid, base, 0, gid)
}

// ThreadRated credits the rating user under the rated thread's forum rate.
func (s *Session) ThreadRated(ctx context.Context, uid, fid, gid int64) error {
	base := s.engine.settings.Decimal(ctx, settings.IncomePerRate, decimal.Zero)
	return s.award(ctx, uid, base, fid, gid)
}

// PageView trickles the per-page-view income to the viewing user.
func (s *Session) PageView(ctx context.Context, uid, gid int64) error {
	base := s.engine.settings.Decimal(ctx, settings.IncomePageView, decimal.Zero)
	return s.award(ctx, uid, base, 0, gid)
}

// Visit trickles the per-visit income to a returning user.
func (s *Session) Visit(ctx context.Context, uid, gid int64) error {
	base := s.engine.settings.Decimal(ctx, settings.IncomeVisit, decimal.Zero)
	return s.award(ctx, uid, base, 0, gid)
}

// NewRegistration credits a just-registered user by name (no uid has been
// observed by this layer yet, so the write is string-keyed and immediate).
func (s *Session) NewRegistration(ctx context.Context, username string) error {
	if !s.engine.enabled(ctx) {
		return nil
	}
	base := s.engine.settings.Decimal(ctx, settings.IncomeNewReg, decimal.Zero)
	if base.IsZero() {
		return nil
	}
	return s.ledger.AddByName(ctx, username, base)
}

// Referral credits the referring user by name when a referred registration
// completes.
func (s *Session) Referral(ctx context.Context, referrerName string) error {
	if !s.engine.enabled(ctx) {
		return nil
	}
	base := s.engine.settings.Decimal(ctx, settings.IncomeReferral, decimal.Zero)
	if base.IsZero() {
		return nil
	}
	return s.ledger.AddByName(ctx, referrerName, base)
}
