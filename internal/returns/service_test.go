package returns

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/casamarket/casa-backend/internal/customers"
	"github.com/casamarket/casa-backend/internal/ledger"
	"github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/dbtest"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/outbox"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

type recordingReverser struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (r *recordingReverser) Reverse(_ context.Context, request models.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, request.ID)
	return r.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
}

func (n *recordingNotifier) ReturnDecided(_ context.Context, _ models.Customer, _ models.ReturnRequest, status string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
	return errors.New("mail down")
}

type fakeStore struct {
	object      string
	contentType string
	body        string
	err         error
}

func (f *fakeStore) Upload(_ context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(body)
	f.object, f.contentType, f.body = objectName, contentType, string(b)
	return "https://storage.googleapis.com/evidence/" + objectName, nil
}

type fixture struct {
	client   *db.Client
	svc      Service
	reverser *recordingReverser
	notifier *recordingNotifier
	store    *fakeStore
	customer *models.Customer
	seller   *models.Seller
	product  *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), nil, nil)
	require.NoError(t, err)

	f := &fixture{
		client:   client,
		reverser: &recordingReverser{},
		notifier: &recordingNotifier{},
		store:    &fakeStore{},
	}
	f.svc, err = NewService(Deps{
		Repo:      NewRepository(conn),
		Tx:        client,
		Ledger:    ledgerSvc,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Evidence:  f.store,
		Reverser:  f.reverser,
		Notifier:  f.notifier,
		Customers: customers.NewRepository(conn),
	})
	require.NoError(t, err)

	f.customer = dbtest.Customer(t, conn, 0)
	f.seller = dbtest.Seller(t, conn, nil)
	f.product = dbtest.Product(t, conn, f.seller.ID, 500)
	return f
}

func (f *fixture) fulfilledItem(t *testing.T) *models.OrderItem {
	return dbtest.OrderItem(t, f.client.DB(), f.customer, f.product, enums.OrderItemStatusFulfilled, 500)
}

func (f *fixture) open(t *testing.T, method enums.RefundMethod, amount int64) *ReturnDTO {
	t.Helper()
	item := f.fulfilledItem(t)
	dto, err := f.svc.RequestReturn(context.Background(), RequestReturnInput{
		OrderItemID:       item.ID,
		CustomerID:        f.customer.ID,
		Reason:            "arrived cracked",
		RefundMethod:      method,
		RefundAmountCents: &amount,
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) item(t *testing.T, id uuid.UUID) models.OrderItem {
	t.Helper()
	var item models.OrderItem
	require.NoError(t, f.client.DB().First(&item, "id = ?", id).Error)
	return item
}

func (f *fixture) request(t *testing.T, id uuid.UUID) models.ReturnRequest {
	t.Helper()
	var r models.ReturnRequest
	require.NoError(t, f.client.DB().First(&r, "id = ?", id).Error)
	return r
}

func TestSellerApprovalCreditsStoreCreditOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opened := f.open(t, enums.RefundMethodStoreCredit, 300)
	require.Equal(t, enums.ReturnStatusRequested, opened.Status)

	approved, err := f.svc.ApproveBySeller(ctx, opened.ID, f.seller.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusUnderReview, approved.Status)
	require.NotNil(t, approved.RefundedAt)
	require.EqualValues(t, 300, dbtest.Credit(t, f.client.DB(), f.customer.ID))

	_, err = f.svc.ApproveBySeller(ctx, opened.ID, f.seller.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	require.EqualValues(t, 300, dbtest.Credit(t, f.client.DB(), f.customer.ID))
	require.EqualValues(t, 1, dbtest.Count(t, f.client.DB(), &models.CreditLedgerEvent{}))

	item := f.item(t, opened.OrderItemID)
	require.Equal(t, enums.ItemReturnApproved, item.ReturnStatus)
	require.Equal(t, enums.OrderItemStatusFulfilled, item.Status)
}

func TestConcurrentSellerApprovalsRefundExactlyOnce(t *testing.T) {
	f := newFixture(t)
	opened := f.open(t, enums.RefundMethodStoreCredit, 300)

	const attempts = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApproveBySeller(context.Background(), opened.ID, f.seller.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, conflicts)
	require.EqualValues(t, 300, dbtest.Credit(t, f.client.DB(), f.customer.ID))
	require.EqualValues(t, 1, dbtest.Count(t, f.client.DB(), &models.CreditLedgerEvent{}))
}

func TestAdminApprovalCompletesStoreCreditReturnWithoutSecondCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := uuid.New()
	opened := f.open(t, enums.RefundMethodStoreCredit, 300)

	_, err := f.svc.ApproveByAdmin(ctx, opened.ID, adminID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState), "got %v", err)

	_, err = f.svc.ApproveBySeller(ctx, opened.ID, f.seller.ID)
	require.NoError(t, err)

	final, err := f.svc.ApproveByAdmin(ctx, opened.ID, adminID, "looks fine")
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusApproved, final.Status)
	require.NotNil(t, final.AdminNote)
	require.EqualValues(t, 300, dbtest.Credit(t, f.client.DB(), f.customer.ID))
	require.Empty(t, f.reverser.calls)

	_, err = f.svc.RejectByAdmin(ctx, opened.ID, adminID, "changed my mind")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestOriginalPaymentRefundsAtAdminApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opened := f.open(t, enums.RefundMethodOriginalPayment, 500)

	seller, err := f.svc.ApproveBySeller(ctx, opened.ID, f.seller.ID)
	require.NoError(t, err)
	require.Nil(t, seller.RefundedAt)
	require.Empty(t, f.reverser.calls)

	final, err := f.svc.ApproveByAdmin(ctx, opened.ID, uuid.New(), "")
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusApproved, final.Status)
	require.NotNil(t, final.RefundedAt)
	require.Equal(t, []uuid.UUID{opened.ID}, f.reverser.calls)
	require.Zero(t, dbtest.Credit(t, f.client.DB(), f.customer.ID))
}

func TestReverserFailureRollsBackAdminApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opened := f.open(t, enums.RefundMethodOriginalPayment, 500)
	_, err := f.svc.ApproveBySeller(ctx, opened.ID, f.seller.ID)
	require.NoError(t, err)

	f.reverser.err = errors.New("gateway timeout")
	_, err = f.svc.ApproveByAdmin(ctx, opened.ID, uuid.New(), "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	stored := f.request(t, opened.ID)
	require.Equal(t, enums.ApprovalPending, stored.AdminApprovalStatus)
	require.Nil(t, stored.RefundedAt)
}

func TestSellerRejectionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opened := f.open(t, enums.RefundMethodStoreCredit, 300)

	_, err := f.svc.RejectBySeller(ctx, opened.ID, f.seller.ID, "   ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	rejected, err := f.svc.RejectBySeller(ctx, opened.ID, f.seller.ID, "item was used")
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusRejected, rejected.Status)
	require.Equal(t, enums.ItemReturnRejected, f.item(t, opened.OrderItemID).ReturnStatus)

	_, err = f.svc.ApproveBySeller(ctx, opened.ID, f.seller.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = f.svc.ApproveByAdmin(ctx, opened.ID, uuid.New(), "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Zero(t, dbtest.Credit(t, f.client.DB(), f.customer.ID))
}

func TestSellerDecisionRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	opened := f.open(t, enums.RefundMethodStoreCredit, 300)

	_, err := f.svc.ApproveBySeller(context.Background(), opened.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.ApproveBySeller(context.Background(), uuid.New(), f.seller.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Zero(t, dbtest.Credit(t, f.client.DB(), f.customer.ID))
}

func TestDecisionsNotifyCustomerBestEffort(t *testing.T) {
	f := newFixture(t)
	opened := f.open(t, enums.RefundMethodStoreCredit, 300)

	_, err := f.svc.ApproveBySeller(context.Background(), opened.ID, f.seller.ID)
	require.NoError(t, err)
	require.Equal(t, []string{string(enums.ReturnStatusUnderReview)}, f.notifier.statuses)
}

func TestRequestReturnRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.client.DB()

	pending := dbtest.OrderItem(t, conn, f.customer, f.product, enums.OrderItemStatusPending, 500)
	_, err := f.svc.RequestReturn(ctx, RequestReturnInput{OrderItemID: pending.ID, CustomerID: f.customer.ID, Reason: "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState), "got %v", err)

	fulfilled := f.fulfilledItem(t)
	_, err = f.svc.RequestReturn(ctx, RequestReturnInput{OrderItemID: fulfilled.ID, CustomerID: uuid.New(), Reason: "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.RequestReturn(ctx, RequestReturnInput{OrderItemID: uuid.New(), CustomerID: f.customer.ID, Reason: "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	tooMuch := int64(501)
	_, err = f.svc.RequestReturn(ctx, RequestReturnInput{OrderItemID: fulfilled.ID, CustomerID: f.customer.ID, Reason: "x", RefundAmountCents: &tooMuch})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.RequestReturn(ctx, RequestReturnInput{
		OrderItemID:  fulfilled.ID,
		CustomerID:   f.customer.ID,
		Reason:       "x",
		EvidenceURLs: []string{"ftp://example.com/a.png"},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	opened, err := f.svc.RequestReturn(ctx, RequestReturnInput{
		OrderItemID:  fulfilled.ID,
		CustomerID:   f.customer.ID,
		Reason:       "  wrong colour  ",
		EvidenceURLs: []string{"https://cdn.example.com/a.png"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 500, opened.RefundAmountCents)
	require.Equal(t, enums.RefundMethodStoreCredit, opened.RefundMethod)
	require.Equal(t, "wrong colour", opened.Reason)
	require.Equal(t, []string{"https://cdn.example.com/a.png"}, opened.EvidenceURLs)
	require.Equal(t, enums.ItemReturnRequested, f.item(t, fulfilled.ID).ReturnStatus)

	_, err = f.svc.RequestReturn(ctx, RequestReturnInput{OrderItemID: fulfilled.ID, CustomerID: f.customer.ID, Reason: "again"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	require.EqualValues(t, 1, dbtest.Count(t, conn, &models.ReturnRequest{}))
}

func TestUploadEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.svc.UploadEvidence(ctx, f.customer.ID, "Broken Tile.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(f.store.object, f.customer.ID.String()+"/"))
	require.True(t, strings.HasSuffix(f.store.object, "-broken-tile.png"), f.store.object)
	require.Equal(t, "png-bytes", f.store.body)
	require.Contains(t, url, f.store.object)

	_, err = f.svc.UploadEvidence(ctx, f.customer.ID, "notes.txt", "text/plain", strings.NewReader("x"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	f.store.err = errors.New("bucket unavailable")
	_, err = f.svc.UploadEvidence(ctx, f.customer.ID, "a.jpg", "image/jpeg", strings.NewReader("x"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUploadFailed), "got %v", err)
}

func TestUploadEvidenceWithoutStore(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), nil, nil)
	require.NoError(t, err)
	svc, err := NewService(Deps{
		Repo:   NewRepository(conn),
		Tx:     client,
		Ledger: ledgerSvc,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	_, err = svc.UploadEvidence(context.Background(), uuid.New(), "a.png", "image/png", strings.NewReader("x"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestGetAndQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.open(t, enums.RefundMethodStoreCredit, 100)
	second := f.open(t, enums.RefundMethodStoreCredit, 200)
	_, err := f.svc.ApproveBySeller(ctx, first.ID, f.seller.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, first.ID, orders.Viewer{ID: f.customer.ID, Role: enums.RoleCustomer})
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusUnderReview, got.Status)
	_, err = f.svc.Get(ctx, first.ID, orders.Viewer{ID: uuid.New(), Role: enums.RoleSeller})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Get(ctx, first.ID, orders.Viewer{ID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	pending, err := f.svc.ListPendingForSeller(ctx, f.seller.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	require.Equal(t, second.ID, pending.Items[0].ID)

	awaiting, err := f.svc.ListForAdmin(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, awaiting.Items, 1)
	require.Equal(t, first.ID, awaiting.Items[0].ID)
}
