package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/user"
	appfs "github.com/24vibes/vibes/fs"
	inmemdb "github.com/24vibes/vibes/storage/database/inmem"
	"github.com/24vibes/vibes/testutil"
)

type userTest struct {
	repo       user.Repository
	colleagues colleague.Repository
	svc        *user.Service
}

func newUserTest(t *testing.T) userTest {
	t.Helper()
	db := inmemdb.Open()
	roster, err := colleague.LoadRoster(appfs.FS)
	require.NoError(t, err)
	validate, _ := testutil.NewValidator()

	repo := inmemdb.NewUserRepository(db)
	colRepo := inmemdb.NewColleagueRepository(db)
	colSvc := colleague.NewService(colRepo, repo, roster, validate, core.NopLogger{})
	return userTest{
		repo:       repo,
		colleagues: colRepo,
		svc:        user.NewService(repo, colSvc, validate, core.NopLogger{}),
	}
}

func TestService_Link(t *testing.T) {
	ctx := context.Background()
	tt := newUserTest(t)

	t.Run("first sign in", func(t *testing.T) {
		acc, err := tt.svc.Link(ctx, user.Identity{
			Subject:  "sub-ayu",
			Email:    " Ayu.Lestari@24slides.com ",
			Name:     "Ayu L.",
			PhotoURL: "https://img.test/ayu.png",
		})
		require.NoError(t, err)
		assert.Equal(t, "sub-ayu", acc.ID)
		assert.Equal(t, "ayu.lestari@24slides.com", acc.Email)
		assert.True(t, acc.IsActive)
		assert.False(t, acc.IsAdmin)
		assert.True(t, acc.LastLogin.Valid)
		require.NotNil(t, acc.Colleague)
		assert.Equal(t, "6f1d2c1e-8d3b-4f7a-9b51-0a1c2e3d4f01", acc.ColleagueID, "linked to the roster record")
		assert.Equal(t, "https://img.test/ayu.png", acc.Colleague.Avatar)
		assert.False(t, acc.OnboardingCompleted())
		assert.Equal(t, "Ayu Lestari", acc.Name())
	})

	t.Run("next sign in keeps the link", func(t *testing.T) {
		acc, err := tt.svc.Link(ctx, user.Identity{Subject: "sub-ayu", Email: "ayu.lestari@24slides.com"})
		require.NoError(t, err)
		assert.Equal(t, "6f1d2c1e-8d3b-4f7a-9b51-0a1c2e3d4f01", acc.ColleagueID)
		n, err := tt.colleagues.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "no duplicate colleague")
	})

	t.Run("broken link is re-pointed", func(t *testing.T) {
		usr, err := tt.repo.GetByID(ctx, "sub-ayu")
		require.NoError(t, err)
		usr.ColleagueID = "deleted-colleague"
		_, err = tt.repo.Update(ctx, usr)
		require.NoError(t, err)

		acc, err := tt.svc.Link(ctx, user.Identity{Subject: "sub-ayu", Email: "ayu.lestari@24slides.com"})
		require.NoError(t, err)
		assert.Equal(t, "6f1d2c1e-8d3b-4f7a-9b51-0a1c2e3d4f01", acc.ColleagueID)
		assert.True(t, acc.UpdatedAt.Valid)
	})

	t.Run("duplicate colleagues link to the oldest", func(t *testing.T) {
		now := time.Now().UTC()
		old := testutil.CreateColleague(t, tt.colleagues, "Diego.Ramos@24slides.com", "Diego", now.Add(-time.Hour))
		testutil.CreateColleague(t, tt.colleagues, "DIEGO.RAMOS@24slides.com", "Diego", now)

		acc, err := tt.svc.Link(ctx, user.Identity{Subject: "sub-diego", Email: "diego.ramos@24slides.com"})
		require.NoError(t, err)
		assert.Equal(t, old.ID, acc.ColleagueID)
	})

	t.Run("invalid identity", func(t *testing.T) {
		_, err := tt.svc.Link(ctx, user.Identity{Email: "ayu.lestari@24slides.com"})
		assert.Error(t, err)
	})
}

func TestService_SetAdmin(t *testing.T) {
	ctx := context.Background()
	tt := newUserTest(t)
	testutil.CreateUser(t, tt.repo, "sub-admin", "mette.jensen@24slides.com", "", true)
	testutil.CreateUser(t, tt.repo, "sub-member", "budi.santoso@24slides.com", "", false)

	_, err := tt.svc.SetAdmin(ctx, "sub-member", "sub-admin", false)
	assert.Equal(t, core.ErrForbidden, err)

	usr, err := tt.svc.SetAdmin(ctx, "sub-admin", "sub-member", true)
	require.NoError(t, err)
	assert.True(t, usr.IsAdmin)
	assert.True(t, usr.UpdatedAt.Valid)

	_, err = tt.svc.SetAdmin(ctx, "sub-admin", "sub-admin", false)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, user.ErrCannotRevokeSelf, vErr.Err)

	usr, err = tt.svc.SetAdmin(ctx, "sub-member", "sub-admin", false)
	require.NoError(t, err)
	assert.False(t, usr.IsAdmin)

	_, err = tt.svc.SetAdmin(ctx, "sub-member", "nobody", true)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	isAdmin, err := tt.svc.IsAdmin(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestService_BootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	tt := newUserTest(t)
	testutil.CreateUser(t, tt.repo, "sub-mette", "mette.jensen@24slides.com", "", false)

	usr, err := tt.svc.BootstrapAdmin(ctx, "Mette.Jensen@24slides.com", true)
	require.NoError(t, err)
	assert.True(t, usr.IsAdmin)

	_, err = tt.svc.BootstrapAdmin(ctx, "nobody@24slides.com", true)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	_, err = tt.svc.BootstrapAdmin(ctx, "not-an-email", true)
	assert.Error(t, err)
}

func TestService_SetActive(t *testing.T) {
	ctx := context.Background()
	tt := newUserTest(t)
	testutil.CreateUser(t, tt.repo, "sub-budi", "budi.santoso@24slides.com", "", false)

	usr, err := tt.svc.SetActive(ctx, "sub-budi", false)
	require.NoError(t, err)
	assert.False(t, usr.IsActive)

	stored, err := tt.repo.GetByID(ctx, "sub-budi")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestService_ListAccounts(t *testing.T) {
	ctx := context.Background()
	tt := newUserTest(t)
	now := time.Now().UTC()

	c := testutil.CreateColleague(t, tt.colleagues, "budi.santoso@24slides.com", "Budi")
	testutil.CreateUser(t, tt.repo, "sub-budi", "budi.santoso@24slides.com", c.ID, false, now)
	testutil.CreateUser(t, tt.repo, "sub-ghost", "ghost@24slides.com", "missing-colleague", false, now.Add(-time.Minute))

	accounts, err := tt.svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "sub-budi", accounts[0].ID)
	require.NotNil(t, accounts[0].Colleague)
	assert.Equal(t, "Budi", accounts[0].Colleague.Name)
	assert.Nil(t, accounts[1].Colleague)
	assert.Equal(t, "ghost", accounts[1].Name())
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	tt := newUserTest(t)

	acc, err := tt.svc.Link(ctx, user.Identity{Subject: "sub-rina", Email: "rina.wulandari@24slides.com"})
	require.NoError(t, err)

	dept := "Operations"
	acc, err = tt.svc.UpdateProfile(ctx, acc.ID, colleague.ProfileUpdate{Department: &dept})
	require.NoError(t, err)
	require.NotNil(t, acc.Colleague)
	assert.Equal(t, "Operations", acc.Colleague.Department)

	got, err := tt.svc.GetWithColleague(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Operations", got.Colleague.Department)
}
