package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
)

// AddTemplate 新增模板，仅 Owner 可调用；新模板默认启用
func (r *Registry) AddTemplate(ctx context.Context, caller common.Address, tpl model.Template) (model.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return model.Template{}, err
	}
	tpl.Name = strings.TrimSpace(tpl.Name)
	if tpl.Name == "" {
		return model.Template{}, fmt.Errorf("%w: empty template name", model.ErrInvalidConfig)
	}
	if _, ok := r.templates[tpl.Name]; ok {
		return model.Template{}, fmt.Errorf("%w: %s", model.ErrTemplateExists, tpl.Name)
	}
	if tpl.ApprovalMethod != "" && !tpl.ApprovalMethod.Valid() {
		return model.Template{}, fmt.Errorf("%w: %q", model.ErrInvalidApprovalMethod, tpl.ApprovalMethod)
	}
	tpl.Active = true
	tpl.CreatedAt = r.now()

	if err := r.commit(ctx, EventTemplateAdded, templateAdded{Template: tpl}); err != nil {
		return model.Template{}, err
	}
	return *r.templates[tpl.Name], nil
}

// UpdateTemplateStatus 启用或停用模板
func (r *Registry) UpdateTemplateStatus(ctx context.Context, caller common.Address, name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if _, ok := r.templates[name]; !ok {
		return fmt.Errorf("%w: %s", model.ErrTemplateNotFound, name)
	}
	return r.commit(ctx, EventTemplateStatus, templateStatus{Name: name, Active: active})
}

// Template 获取模板
func (r *Registry) Template(name string) (model.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.templates[name]
	if !ok {
		return model.Template{}, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, name)
	}
	return *tpl, nil
}

// Templates 所有模板，按添加顺序
func (r *Registry) Templates() []model.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Template, 0, len(r.templateOrder))
	for _, name := range r.templateOrder {
		out = append(out, *r.templates[name])
	}
	return out
}
