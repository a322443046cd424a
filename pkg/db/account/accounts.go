package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

func (dbService *AccountDBService) CreateAccount(account umTypes.Account) (umTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now().Unix()
	account.Timestamps.CreatedAt = now
	account.Timestamps.UpdatedAt = now

	res, err := dbService.collectionAccounts().InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account, ErrEmailAlreadyUsed
		}
		return account, err
	}
	account.ID = res.InsertedID.(primitive.ObjectID)
	return account, nil
}

func (dbService *AccountDBService) GetAccountByEmail(email string) (umTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var account umTypes.Account
	err := dbService.collectionAccounts().FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, ErrAccountNotFound
		}
		return account, err
	}
	return account, nil
}

func (dbService *AccountDBService) GetAccountByID(id string) (umTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return umTypes.Account{}, ErrAccountNotFound
	}

	var account umTypes.Account
	err = dbService.collectionAccounts().FindOne(ctx, bson.M{"_id": objID}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, ErrAccountNotFound
		}
		return account, err
	}
	return account, nil
}

// SaveLockoutState persists the new lockout state only when the stored
// attempt counter still matches the one the caller based its decision on, so
// two near-simultaneous login failures cannot lose an increment. The caller
// retries with fresh state when the write did not apply.
func (dbService *AccountDBService) SaveLockoutState(email string, prevAttempts int, newState umTypes.LockoutState) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"email":            email,
		"lockout.attempts": prevAttempts,
	}
	update := bson.M{
		"$set": bson.M{
			"lockout":              newState,
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	res, err := dbService.collectionAccounts().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0 || res.MatchedCount > 0, nil
}

func (dbService *AccountDBService) ResetLockout(accountID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"lockout":              umTypes.LockoutState{},
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

func (dbService *AccountDBService) UpdateLastLogin(accountID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	now := time.Now().Unix()
	update := bson.M{
		"$set": bson.M{
			"timestamps.lastLogin": now,
			"timestamps.updatedAt": now,
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

func (dbService *AccountDBService) SetEmailVerificationToken(accountID primitive.ObjectID, token umTypes.TokenInfo) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"emailVerification":    token,
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

// VerifyEmailByToken flips the account to verified and clears the token in
// one atomic update. Re-using the token after success matches nothing.
func (dbService *AccountDBService) VerifyEmailByToken(token string) (umTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"emailVerification.token":     token,
		"emailVerification.expiresAt": bson.M{"$gt": time.Now().Unix()},
		"emailVerified":               false,
	}
	update := bson.M{
		"$set": bson.M{
			"emailVerified":        true,
			"emailVerification":    umTypes.TokenInfo{},
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var account umTypes.Account
	err := dbService.collectionAccounts().FindOneAndUpdate(ctx, filter, update, opts).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, ErrAccountNotFound
		}
		return account, err
	}
	return account, nil
}

func (dbService *AccountDBService) SetPasswordResetToken(accountID primitive.ObjectID, token umTypes.TokenInfo) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"passwordReset":        token,
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

func (dbService *AccountDBService) GetAccountByResetToken(token string) (umTypes.Account, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"passwordReset.token":     token,
		"passwordReset.expiresAt": bson.M{"$gt": time.Now().Unix()},
	}

	var account umTypes.Account
	err := dbService.collectionAccounts().FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account, ErrAccountNotFound
		}
		return account, err
	}
	return account, nil
}

// UpdatePassword stores the new hash together with the rotated password
// record and clears any pending reset token.
func (dbService *AccountDBService) UpdatePassword(accountID primitive.ObjectID, newHash string, record umTypes.PasswordRecord) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"passwordHash":         newHash,
			"passwordRecord":       record,
			"passwordReset":        umTypes.TokenInfo{},
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

func (dbService *AccountDBService) MarkPasswordExpiryWarned(accountID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"passwordRecord.expiryWarned": true,
			"timestamps.updatedAt":        time.Now().Unix(),
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

func (dbService *AccountDBService) SetTwoFactorTempSecret(accountID primitive.ObjectID, tempSecret string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"twoFactor.tempSecret": tempSecret,
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

// EnableTwoFactor promotes the temp secret to the active secret and stores
// the backup code hashes. Fails when no setup is in progress.
func (dbService *AccountDBService) EnableTwoFactor(accountID primitive.ObjectID, secret string, backupCodeHashes []string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"_id":                  accountID,
		"twoFactor.tempSecret": secret,
	}
	update := bson.M{
		"$set": bson.M{
			"twoFactor": umTypes.TwoFactorState{
				Enabled:          true,
				Secret:           secret,
				BackupCodeHashes: backupCodeHashes,
			},
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	res, err := dbService.collectionAccounts().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return ErrAccountNotFound
	}
	return nil
}

func (dbService *AccountDBService) DisableTwoFactor(accountID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"twoFactor":            umTypes.TwoFactorState{},
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	_, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	return err
}

func (dbService *AccountDBService) ReplaceBackupCodes(accountID primitive.ObjectID, backupCodeHashes []string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"_id":               accountID,
		"twoFactor.enabled": true,
	}
	update := bson.M{
		"$set": bson.M{
			"twoFactor.backupCodeHashes": backupCodeHashes,
			"timestamps.updatedAt":       time.Now().Unix(),
		},
	}
	res, err := dbService.collectionAccounts().UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return ErrAccountNotFound
	}
	return nil
}

// ConsumeBackupCode removes the matched hash in a single atomic update, so a
// code replayed by a concurrent request cannot be used twice.
func (dbService *AccountDBService) ConsumeBackupCode(accountID primitive.ObjectID, codeHash string) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$pull": bson.M{
			"twoFactor.backupCodeHashes": codeHash,
		},
		"$set": bson.M{
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	res, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (dbService *AccountDBService) UpdateAccountRole(accountID primitive.ObjectID, role string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"role":                 role,
			"timestamps.updatedAt": time.Now().Unix(),
		},
	}
	res, err := dbService.collectionAccounts().UpdateOne(ctx, bson.M{"_id": accountID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return ErrAccountNotFound
	}
	return nil
}

func (dbService *AccountDBService) DeleteAccount(accountID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionAccounts().DeleteOne(ctx, bson.M{"_id": accountID})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return ErrAccountNotFound
	}
	return nil
}

func (dbService *AccountDBService) CountAdmins() (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	return dbService.collectionAccounts().CountDocuments(ctx, bson.M{"role": umTypes.ROLE_ADMIN})
}

type AccountStats struct {
	TotalAccounts    int64 `json:"totalAccounts"`
	VerifiedAccounts int64 `json:"verifiedAccounts"`
	TwoFactorEnabled int64 `json:"twoFactorEnabled"`
	LockedAccounts   int64 `json:"lockedAccounts"`
	Admins           int64 `json:"admins"`
}

func (dbService *AccountDBService) GetAccountStats() (AccountStats, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	collection := dbService.collectionAccounts()
	count := func(filter bson.M, target *int64) error {
		total, err := collection.CountDocuments(ctx, filter)
		if err != nil {
			return err
		}
		*target = total
		return nil
	}

	stats := AccountStats{}
	if err := count(bson.M{}, &stats.TotalAccounts); err != nil {
		return AccountStats{}, err
	}
	if err := count(bson.M{"emailVerified": true}, &stats.VerifiedAccounts); err != nil {
		return AccountStats{}, err
	}
	if err := count(bson.M{"twoFactor.enabled": true}, &stats.TwoFactorEnabled); err != nil {
		return AccountStats{}, err
	}
	if err := count(bson.M{"lockout.lockedUntil": bson.M{"$gt": time.Now().Unix()}}, &stats.LockedAccounts); err != nil {
		return AccountStats{}, err
	}
	if err := count(bson.M{"role": umTypes.ROLE_ADMIN}, &stats.Admins); err != nil {
		return AccountStats{}, err
	}
	return stats, nil
}

func (dbService *AccountDBService) GetAccounts(page int64, limit int64) ([]umTypes.Account, int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	total, err := dbService.collectionAccounts().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamps.createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := dbService.collectionAccounts().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var accounts []umTypes.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (dbService *AccountDBService) DeleteUnverifiedAccounts(createdBefore int64) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"emailVerified":        false,
		"timestamps.createdAt": bson.M{"$lt": createdBefore},
	}

	res, err := dbService.collectionAccounts().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindAndExecuteOnAccounts streams the accounts matching the filter through
// the callback, so maintenance jobs do not load the whole collection at once.
func (dbService *AccountDBService) FindAndExecuteOnAccounts(
	ctx context.Context,
	filter bson.M,
	fn func(account umTypes.Account) error,
) error {
	cursor, err := dbService.collectionAccounts().Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var account umTypes.Account
		if err := cursor.Decode(&account); err != nil {
			slog.Error("failed to decode account", slog.String("error", err.Error()))
			continue
		}
		if err := fn(account); err != nil {
			slog.Error("failed to process account", slog.String("accountID", account.ID.Hex()), slog.String("error", err.Error()))
		}
	}
	return cursor.Err()
}
